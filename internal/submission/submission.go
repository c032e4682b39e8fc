package submission

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/forest-guardian/truecolor-cli/internal/cache"
	"github.com/forest-guardian/truecolor-cli/internal/history"
	"github.com/forest-guardian/truecolor-cli/internal/imaging"
	"github.com/forest-guardian/truecolor-cli/internal/layer"
	"github.com/forest-guardian/truecolor-cli/internal/logger"
	"github.com/forest-guardian/truecolor-cli/internal/sentinel"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrSubmissionInFlight = errors.New("another submission is still running")

const (
	msgInvalidRange    = "End date should be after start date."
	msgIncompleteRange = "Select both a start and an end date."
	msgDownloadFailed  = "Image download failed!"
	msgFailurePrefix   = "Failed to process data: "
)

type Fetcher interface {
	Fetch(ctx context.Context, desc *sentinel.RequestDescriptor) ([]byte, error)
}

type Displayer interface {
	Show(b imaging.Buffer, name string) (string, error)
}

type Notifier interface {
	SendError(ctx context.Context, message string) error
	SendSuccess(ctx context.Context, message string) error
}

type LayerLoader func(path, name string) (*layer.Info, error)

type Input struct {
	Start   string
	End     string
	Options sentinel.OutputOptions
}

type Result struct {
	ID           string
	Status       history.Status
	Message      string
	Warnings     []string
	ResponsePath string
	PreviewPath  string
	Layer        *layer.Info
	Err          error
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

type Option func(*Submitter)

func WithStore(store *cache.ResponseStore) Option { return func(s *Submitter) { s.store = store } }
func WithDisplay(d Displayer) Option              { return func(s *Submitter) { s.display = d } }
func WithLedger(l *history.Ledger) Option         { return func(s *Submitter) { s.ledger = l } }
func WithNotifier(n Notifier) Option              { return func(s *Submitter) { s.notifier = n } }
func WithLayerLoader(fn LayerLoader) Option       { return func(s *Submitter) { s.loadLayer = fn } }
func WithLogger(l *zerolog.Logger) Option         { return func(s *Submitter) { s.log = l } }

// Submitter is the single boundary between user input and the imagery pipeline.
// Every failure is turned into a Result; nothing propagates further.
type Submitter struct {
	builder   *sentinel.Builder
	fetcher   Fetcher
	store     *cache.ResponseStore
	display   Displayer
	ledger    *history.Ledger
	notifier  Notifier
	loadLayer LayerLoader
	log       *zerolog.Logger
	mu        sync.Mutex
	now       func() time.Time
}

func New(builder *sentinel.Builder, fetcher Fetcher, opts ...Option) *Submitter {
	s := &Submitter{
		builder:   builder,
		fetcher:   fetcher,
		loadLayer: layer.Load,
		log:       logger.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs one request. Only one submission may run at a time; a second
// call while one is in flight fails immediately.
func (s *Submitter) Submit(ctx context.Context, in Input) (res Result) {
	if !s.mu.TryLock() {
		return Result{
			Status:  history.StatusFailure,
			Message: msgFailurePrefix + ErrSubmissionInFlight.Error(),
			Err:     ErrSubmissionInFlight,
		}
	}
	defer s.mu.Unlock()

	res.ID = uuid.NewString()
	ctx = logger.WithSubmissionID(ctx, res.ID)

	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx, s.log).Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("submission panicked")
			res = failure(res.ID, fmt.Errorf("panic: %v", r))
		}
		s.finish(ctx, in, &res)
	}()

	res = s.run(ctx, res.ID, in)
	return res
}

func (s *Submitter) run(ctx context.Context, id string, in Input) Result {
	log := logger.FromContext(ctx, s.log)
	res := Result{ID: id}

	dates, err := sentinel.ParseDateRange(in.Start, in.End)
	if err != nil {
		return Result{ID: id, Status: history.StatusFailure, Message: err.Error(), Err: err}
	}
	if err := dates.Validate(); err != nil {
		msg := msgInvalidRange
		if errors.Is(err, sentinel.ErrIncompleteDateRange) {
			msg = msgIncompleteRange
		}
		return Result{ID: id, Status: history.StatusFailure, Message: msg, Err: err}
	}

	desc, err := s.builder.Build(dates, in.Options)
	if err != nil {
		return failure(id, err)
	}
	log.Info().
		Str("mode", string(desc.Mode)).
		Str("start", dates.StartString()).
		Str("end", dates.EndString()).
		Str("mime_type", string(desc.MimeType)).
		Bool("persist", in.Options.PersistToDisk).
		Msg("submitting image request")

	raw, responsePath, err := s.fetch(ctx, desc, in.Options.PersistToDisk, &res)
	if errors.Is(err, sentinel.ErrEmptyResult) {
		log.Error().Err(err).Msg(msgDownloadFailed)
		res.warn(msgDownloadFailed)
		res.Status = history.StatusFailure
		res.Message = msgFailurePrefix + msgDownloadFailed
		res.Err = err
		return res
	}
	if err != nil {
		log.Error().Err(err).Msg("image request failed")
		return failure(id, err)
	}
	res.ResponsePath = responsePath

	decoded, err := imaging.Decode(raw)
	if err != nil {
		return failure(id, err)
	}
	processed, err := imaging.Process(decoded, desc.Mode.Brightness(), imaging.UnitClip)
	if errors.Is(err, imaging.ErrDegenerateImage) {
		log.Warn().Err(err).Msg("flat image")
		res.warn(err.Error())
	} else if err != nil {
		return failure(id, err)
	}

	if s.display != nil {
		name := fmt.Sprintf("%s_%s_%s", desc.Mode, dates.StartString(), dates.EndString())
		previewPath, err := s.display.Show(processed, name)
		if err != nil {
			log.Warn().Err(err).Msg("failed to display image")
			res.warn(fmt.Sprintf("Failed to display image: %v", err))
		}
		res.PreviewPath = previewPath
	}

	if in.Options.LoadLayer {
		s.attachLayer(ctx, &res, dates)
	}

	res.Status = history.StatusSuccess
	if len(res.Warnings) > 0 {
		res.Status = history.StatusWarning
	}
	res.Message = fmt.Sprintf("Successfully processed data for dates: %s to %s", dates.StartString(), dates.EndString())
	return res
}

// fetch serves persisted responses from the store when present and saves new
// ones when persistence was requested.
func (s *Submitter) fetch(ctx context.Context, desc *sentinel.RequestDescriptor, persist bool, res *Result) ([]byte, string, error) {
	log := logger.FromContext(ctx, s.log)

	if !persist {
		data, err := s.fetcher.Fetch(ctx, desc)
		return data, "", err
	}
	if s.store == nil {
		res.warn("Download requested but no data folder is configured")
		data, err := s.fetcher.Fetch(ctx, desc)
		return data, "", err
	}

	payload, err := desc.Payload()
	if err != nil {
		return nil, "", err
	}
	key := s.store.GenerateKey(payload)
	ext := desc.MimeType.Extension()

	if entry, data, ok := s.store.Get(key, ext); ok {
		log.Info().Str("path", entry.ResponsePath).Msg("using persisted response")
		return data, entry.ResponsePath, nil
	}

	data, err := s.fetcher.Fetch(ctx, desc)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", sentinel.ErrEmptyResult
	}
	entry, err := s.store.Set(key, ext, payload, data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to persist response: %w", err)
	}
	log.Info().Str("path", entry.ResponsePath).Msg("response saved")
	return data, entry.ResponsePath, nil
}

func (s *Submitter) attachLayer(ctx context.Context, res *Result, dates sentinel.DateRange) {
	log := logger.FromContext(ctx, s.log)
	if res.ResponsePath == "" {
		res.warn("Layer not loaded: enable download to keep a file to load")
		return
	}
	name := fmt.Sprintf("Sentinel Image %s to %s", dates.StartString(), dates.EndString())
	info, err := s.loadLayer(res.ResponsePath, name)
	if err != nil {
		log.Error().Err(err).Str("path", res.ResponsePath).Msg("layer failed to load")
		res.warn(fmt.Sprintf("Layer failed to load: %v", err))
		return
	}
	res.Layer = info
}

// finish records and announces the result. A panic here is logged and
// swallowed; the result is already decided.
func (s *Submitter) finish(ctx context.Context, in Input, res *Result) {
	log := logger.FromContext(ctx, s.log)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("failed to record submission")
		}
	}()

	if s.ledger != nil {
		format, _ := sentinel.ResolveMimeType(in.Options.FileFormat)
		mode := in.Options.Mode
		if mode == "" {
			mode = sentinel.ModeTrueColor
		}
		err := s.ledger.Append(history.Record{
			ID:           res.ID,
			CreatedAt:    s.now().UTC(),
			Mode:         string(mode),
			StartDate:    in.Start,
			EndDate:      in.End,
			FileFormat:   format.Extension(),
			Persisted:    res.ResponsePath != "",
			ResponsePath: res.ResponsePath,
			PreviewPath:  res.PreviewPath,
			Status:       res.Status,
			Message:      res.Message,
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to record submission history")
		}
	}

	if s.notifier != nil {
		var err error
		if res.Status == history.StatusFailure {
			err = s.notifier.SendError(ctx, res.Message)
		} else {
			err = s.notifier.SendSuccess(ctx, res.Message)
		}
		if err != nil {
			log.Warn().Err(err).Msg("failed to send notification")
		}
	}

	log.Info().Str("status", string(res.Status)).Strs("warnings", res.Warnings).Msg(res.Message)
}

func failure(id string, err error) Result {
	return Result{
		ID:      id,
		Status:  history.StatusFailure,
		Message: msgFailurePrefix + err.Error(),
		Err:     err,
	}
}
