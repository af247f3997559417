package job

import "context"

// MockJob is a test-only job that fabricates its declared outputs
// without doing any real work - grounded on radiome.utils.mocks.NipypeJob,
// which stands in for a real interface job in tests by echoing
// preconfigured output values instead of invoking an external tool.
type MockJob struct {
	BaseJob
	Outputs map[string]any
	Err     error
}

// NewMockJob builds a MockJob that returns outputs verbatim from Run.
func NewMockJob(reference string, outputs map[string]any) *MockJob {
	return &MockJob{BaseJob: NewBaseJob(reference), Outputs: outputs}
}

func (m *MockJob) HashContent() any {
	return []any{"mock", m.BaseJob.HashContent()}
}

func (m *MockJob) Run(context.Context, string, map[string]any) (map[string]any, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make(map[string]any, len(m.Outputs))
	for k, v := range m.Outputs {
		out[k] = v
	}
	return out, nil
}

var _ Job = (*MockJob)(nil)
