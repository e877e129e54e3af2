package download

import "github.com/apple/ml-spatial-librispeech/internal/model"

// ResultStatus is the outcome of one sample.
type ResultStatus int

const (
	StatusSkipped ResultStatus = iota
	StatusDownloaded
	StatusFailed
)

// String returns the status name.
func (s ResultStatus) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusDownloaded:
		return "downloaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result records what happened to one sample.
type Result struct {
	Sample     *model.Sample
	Status     ResultStatus
	Bytes      int64
	StatusCode int
	Err        error
}

// Summary describes a finished or aborted run.
type Summary struct {
	RunID string

	// Total is the number of samples in the metadata, duplicates included.
	Total int

	Skipped    int
	Downloaded int
	Failed     int
	Bytes      int64

	// Results holds one entry per attempted sample, in metadata order.
	// Samples after a failure have no entry.
	Results []*Result

	// Playlist is the path of the playlist written after the run, if any.
	Playlist string
}

// summary builds a Summary from the results recorded so far.
func (m *Manager) summary() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Summary{
		RunID: m.runID,
		Total: len(m.samples),
	}

	for _, r := range m.results {
		if r == nil {
			continue
		}
		s.Results = append(s.Results, r)
		switch r.Status {
		case StatusSkipped:
			s.Skipped++
		case StatusDownloaded:
			s.Downloaded++
			s.Bytes += r.Bytes
		case StatusFailed:
			s.Failed++
		}
	}

	return s
}
