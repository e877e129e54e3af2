package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apple/ml-spatial-librispeech/internal/audio"
	"github.com/apple/ml-spatial-librispeech/internal/config"
	"github.com/apple/ml-spatial-librispeech/internal/http"
	ioutils "github.com/apple/ml-spatial-librispeech/internal/io"
	"github.com/apple/ml-spatial-librispeech/internal/metadata"
	"github.com/apple/ml-spatial-librispeech/internal/model"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// SampleID is the sample the event is about, -1 for run-level events.
	SampleID int

	// Finished is set when the sample has been skipped or written.
	Finished bool
}

// stalePartAge is how old a leftover temp file must be before a run removes
// it. Younger files may belong to another run writing the same directory.
const stalePartAge = 10 * time.Minute

// Logger receives the run log. *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the run logger. Without it nothing is logged.
func WithLogger(l Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithHTTPClient replaces the client built from the settings.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithRunID sets the run identifier reported in the Summary.
func WithRunID(id string) Option {
	return func(m *Manager) {
		if id != "" {
			m.runID = id
		}
	}
}

// Manager coordinates sample downloads.
type Manager struct {
	settings   *config.Settings
	pathCfg    *model.PathConfig
	httpClient *http.Client
	playlist   *audio.PlaylistCreator
	logger     Logger
	runID      string

	samples []*model.Sample
	pending []*model.Sample
	present []*model.Sample

	results []*Result
	claimed map[string]bool

	receivedBytes int64
	totalFiles    int32
	finishedFiles int32

	// writeFile stores a downloaded body. Chosen from settings.AtomicWrites.
	writeFile func(ctx context.Context, path string, data []byte) error

	onProgress func(ProgressEvent)
	mu         sync.Mutex
}

// NewManager creates a new download Manager.
//
// settings are expected to have passed Validate.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent), opts ...Option) *Manager {
	playlistFormat, err := audio.ParsePlaylistFormat(settings.PlaylistFormat)
	if err != nil {
		playlistFormat = audio.FormatM3U
	}

	writeFile := ioutils.WriteNewFile
	if settings.AtomicWrites {
		writeFile = ioutils.WriteFileAtomic
	}

	m := &Manager{
		settings: settings,
		pathCfg:  settings.ToPathConfig(),
		httpClient: http.NewClient(
			http.WithUserAgent(settings.UserAgent),
			http.WithTimeout(settings.Timeout()),
		),
		playlist:   audio.NewPlaylistCreator(playlistFormat, settings.M3UExtended),
		logger:     nopLogger{},
		runID:      ksuid.New().String(),
		writeFile:  writeFile,
		onProgress: onProgress,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RunID returns the identifier of this run.
func (m *Manager) RunID() string {
	return m.runID
}

// Initialize loads the sample identifiers from the metadata file at
// metadataPath (a local path or an http(s) URL) and prepares the samples.
func (m *Manager) Initialize(ctx context.Context, metadataPath string) error {
	opts := metadata.Options{
		Column: m.settings.MetadataColumn,
		Table:  m.settings.MetadataTable,
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Reading metadata: %s", metadataPath), Level: LevelVerbose, SampleID: -1})

	var ids []int
	var err error
	if metadata.IsRemote(metadataPath) {
		ids, err = metadata.LoadRemote(ctx, m.httpClient, metadataPath, opts)
	} else {
		ids, err = metadata.Load(ctx, metadataPath, opts)
	}
	if err != nil {
		return err
	}

	return m.InitializeIDs(ctx, ids)
}

// InitializeIDs prepares one sample per identifier, in order, and classifies
// them by whether their file is already present.
func (m *Manager) InitializeIDs(ctx context.Context, ids []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = model.NewSamples(ids, m.pathCfg)
	m.pending = nil
	m.present = nil
	m.results = make([]*Result, len(m.samples))
	m.claimed = make(map[string]bool, len(m.samples))

	seen := make(map[string]bool, len(m.samples))
	for _, s := range m.samples {
		if seen[s.Path] {
			continue
		}
		seen[s.Path] = true

		if ioutils.Exists(s.Path) {
			m.present = append(m.present, s)
		} else {
			m.pending = append(m.pending, s)
		}
	}

	atomic.StoreInt32(&m.totalFiles, int32(len(m.samples)))
	atomic.StoreInt32(&m.finishedFiles, 0)
	atomic.StoreInt64(&m.receivedBytes, 0)

	m.progress(ProgressEvent{
		Message:  fmt.Sprintf("Found %d samples (%d present, %d to download)", len(m.samples), len(m.present), len(m.pending)),
		Level:    LevelInfo,
		SampleID: -1,
	})

	return nil
}

// TargetPath returns the directory samples are written to.
func (m *Manager) TargetPath() string {
	return m.settings.TargetPath
}

// Samples returns every sample in metadata order, duplicates included.
func (m *Manager) Samples() []*model.Sample {
	return m.samples
}

// Pending returns the distinct samples whose file was missing at
// initialization, in metadata order.
func (m *Manager) Pending() []*model.Sample {
	return m.pending
}

// Present returns the distinct samples whose file existed at initialization.
func (m *Manager) Present() []*model.Sample {
	return m.present
}

// GetProgress returns current download progress.
func (m *Manager) GetProgress() (received int64, filesFinished, filesTotal int32) {
	return atomic.LoadInt64(&m.receivedBytes),
		atomic.LoadInt32(&m.finishedFiles),
		atomic.LoadInt32(&m.totalFiles)
}

// StartDownloads runs the fetch-cache loop over the initialized samples.
//
// Samples whose file exists are skipped without a request. The first
// failure aborts the run and is returned as an *Error; samples after it are
// not attempted. Cancellation of ctx is returned as ctx.Err(). The returned
// Summary is never nil and covers what was done before the run stopped.
func (m *Manager) StartDownloads(ctx context.Context) (*Summary, error) {
	target := m.settings.TargetPath
	if err := ioutils.EnsureDir(target); err != nil {
		m.logger.Errorf("Failed to create target directory %s: %v", target, err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError, SampleID: -1})
		return m.summary(), &Error{Kind: KindStorage, SampleID: -1, Path: target, Cause: err}
	}

	if m.settings.AtomicWrites {
		removed, err := ioutils.RemoveStaleParts(target, stalePartAge)
		if err != nil {
			m.logger.Warnf("Could not clean partial files in %s: %v", target, err)
		} else if removed > 0 {
			m.logger.Debugf("Removed %d partial files from %s", removed, target)
		}
	}

	var err error
	if m.settings.MaxConcurrentDownloads > 1 {
		err = m.runConcurrent(ctx, m.settings.MaxConcurrentDownloads)
	} else {
		err = m.runSequential(ctx)
	}
	if err != nil {
		return m.summary(), err
	}

	m.logger.Infof("Download complete")

	summary := m.summary()
	m.progress(ProgressEvent{
		Message:  fmt.Sprintf("Download complete: %d downloaded, %d skipped", summary.Downloaded, summary.Skipped),
		Level:    LevelSuccess,
		SampleID: -1,
	})

	if m.settings.CreatePlaylist {
		summary.Playlist = m.writePlaylist()
	}

	return summary, nil
}

func (m *Manager) runSequential(ctx context.Context) error {
	for i, s := range m.samples {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := m.downloadSample(ctx, s)
		m.record(i, res)
		if err != nil {
			return err
		}
	}
	return nil
}

// runConcurrent dispatches samples in order to at most limit workers.
//
// A sample whose path is already claimed by an earlier occurrence gets no
// request of its own, so no two workers ever handle the same file. It is
// recorded as skipped only once every worker has succeeded; if the run
// fails, it has no result, like any other sample that was not attempted.
func (m *Manager) runConcurrent(ctx context.Context, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var duplicates []int
	for i, s := range m.samples {
		if gctx.Err() != nil {
			break
		}

		if !m.claim(s.Path) {
			duplicates = append(duplicates, i)
			continue
		}

		g.Go(func() error {
			res, err := m.downloadSample(gctx, s)
			m.record(i, res)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, i := range duplicates {
		m.record(i, m.skip(m.samples[i], "duplicate"))
	}
	return nil
}

func (m *Manager) claim(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.claimed[path] {
		return false
	}
	m.claimed[path] = true
	return true
}

// downloadSample processes one sample: skip, fetch, write.
func (m *Manager) downloadSample(ctx context.Context, s *model.Sample) (*Result, error) {
	if ioutils.Exists(s.Path) {
		return m.skip(s, "exists"), nil
	}

	var last int64
	resp, err := m.httpClient.Fetch(ctx, s.URL, func(read, _ int64) {
		atomic.AddInt64(&m.receivedBytes, read-last)
		last = read
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return m.fail(s, ctxErr), ctxErr
		}
		m.logger.Errorf("Failed to download %s: %v", s.URL, err)
		return m.fail(s, err), &Error{Kind: KindTransport, SampleID: s.ID, URL: s.URL, Path: s.Path, Cause: err}
	}

	if !resp.OK() && !m.settings.AcceptAnyStatus {
		m.logger.Errorf("Failed to download %s: HTTP %s", s.URL, resp.Status)
		cause := fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
		return m.fail(s, cause), &Error{Kind: KindHTTPStatus, SampleID: s.ID, URL: s.URL, Path: s.Path, StatusCode: resp.StatusCode, Cause: cause}
	}

	if err := m.writeFile(ctx, s.Path, resp.Body); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return m.fail(s, err), err
		}
		m.logger.Errorf("Failed to write %s: %v", s.Path, err)
		return m.fail(s, err), &Error{Kind: KindStorage, SampleID: s.ID, URL: s.URL, Path: s.Path, StatusCode: resp.StatusCode, Cause: err}
	}

	m.logger.Infof("Successfully downloaded %s", s.URL)
	atomic.AddInt32(&m.finishedFiles, 1)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", s.FileName), Level: LevelVerbose, SampleID: s.ID, Finished: true})

	return &Result{Sample: s, Status: StatusDownloaded, Bytes: int64(len(resp.Body)), StatusCode: resp.StatusCode}, nil
}

func (m *Manager) skip(s *model.Sample, reason string) *Result {
	m.logger.Debugf("Skipping %s (%s)", s.Path, reason)
	atomic.AddInt32(&m.finishedFiles, 1)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", s.FileName), Level: LevelVerbose, SampleID: s.ID, Finished: true})
	return &Result{Sample: s, Status: StatusSkipped}
}

func (m *Manager) fail(s *model.Sample, err error) *Result {
	if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error downloading %s: %v", s.FileName, err), Level: LevelError, SampleID: s.ID})
	}
	return &Result{Sample: s, Status: StatusFailed, Err: err}
}

func (m *Manager) record(i int, res *Result) {
	m.mu.Lock()
	m.results[i] = res
	m.mu.Unlock()
}

// writePlaylist lists every sample present on disk, in metadata order, and
// returns the playlist path. Failures are reported as warnings.
func (m *Manager) writePlaylist() string {
	var samples []*model.Sample
	seen := make(map[string]bool, len(m.samples))
	for _, s := range m.samples {
		if seen[s.Path] || !ioutils.Exists(s.Path) {
			continue
		}
		seen[s.Path] = true
		samples = append(samples, s)
	}

	name := m.settings.PlaylistFileName + m.playlist.Format().Extension()
	path := filepath.Join(m.settings.TargetPath, name)

	content := m.playlist.CreatePlaylist(m.settings.PlaylistFileName, samples)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		m.logger.Warnf("Failed to write playlist %s: %v", path, err)
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning, SampleID: -1})
		return ""
	}

	m.logger.Infof("Created playlist %s", path)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s (%d samples)", name, len(samples)), Level: LevelSuccess, SampleID: -1})
	return path
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
