package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"voiceagent-server/internal/clients/crm"
	"voiceagent-server/internal/imports/progress"
	"voiceagent-server/internal/observability"
	"voiceagent-server/internal/targeting"

	"github.com/google/uuid"
)

var (
	ErrFileTooLarge     = errors.New("import file is too large")
	ErrCRMDisabled      = errors.New("crm imports are not configured")
	ErrObjectsDisabled  = errors.New("object storage imports are not configured")
	ErrInvalidConnector = errors.New("invalid crm connector")
)

// Source names where a batch came from.
type Source string

const (
	SourceFile   Source = "file"
	SourceCRM    Source = "crm"
	SourceObject Source = "object"
)

// RowError is one rejected input row. Row 0 describes a failure of the whole file.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult lists the contacts merged into the store and the rows that were not.
type ImportResult struct {
	Accepted []targeting.Contact `json:"accepted"`
	Rejected []RowError          `json:"rejected"`
}

func emptyResult() ImportResult {
	return ImportResult{Accepted: []targeting.Contact{}, Rejected: []RowError{}}
}

// PhoneVerifier optionally confirms that a phone number is dialable.
type PhoneVerifier interface {
	VerifyPhone(ctx context.Context, phone string) (bool, error)
}

// ContactPersister writes an accepted batch atomically.
type ContactPersister interface {
	PersistContacts(ctx context.Context, batch []targeting.Contact) error
}

// CustomerFetcher pulls customers from a dealership CRM.
type CustomerFetcher interface {
	FetchCustomers(ctx context.Context, cfg crm.ConnectorConfig) ([]crm.Customer, error)
}

// ObjectGetter reads previously uploaded files.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// EventPublisher announces finished imports.
type EventPublisher interface {
	PublishContactsImported(ctx context.Context, jobID, source string, accepted, rejected int)
}

// Config carries the optional collaborators of the import processor.
type Config struct {
	Persister    ContactPersister
	Tracker      progress.Tracker
	CRM          CustomerFetcher
	Objects      ObjectGetter
	Verifier     PhoneVerifier
	Publisher    EventPublisher
	Metrics      *observability.Metrics
	MaxFileBytes int64
}

// ImportProcessor ingests external contact data into the contact store.
type ImportProcessor struct {
	contacts     *targeting.ContactStore
	persister    ContactPersister
	tracker      progress.Tracker
	crm          CustomerFetcher
	objects      ObjectGetter
	rows         *rowValidator
	publisher    EventPublisher
	metrics      *observability.Metrics
	maxFileBytes int64
	logger       *observability.Logger
	now          func() time.Time

	jobs *jobRegistry
}

// New creates an import processor that merges into contacts.
func New(contacts *targeting.ContactStore, cfg Config, logger *observability.Logger) *ImportProcessor {
	p := &ImportProcessor{
		contacts:     contacts,
		persister:    cfg.Persister,
		tracker:      cfg.Tracker,
		crm:          cfg.CRM,
		objects:      cfg.Objects,
		publisher:    cfg.Publisher,
		metrics:      cfg.Metrics,
		maxFileBytes: cfg.MaxFileBytes,
		logger:       logger,
		now:          time.Now,
	}
	if p.tracker == nil {
		p.tracker = progress.NewMemoryTracker()
	}
	p.rows = newRowValidator(cfg.Verifier, func(ctx context.Context, err error) {
		logger.Warn(observability.WithFields(ctx, observability.Field{Key: "error", Value: err.Error()}),
			"phone verification unavailable, keeping row")
	})
	p.jobs = newJobRegistry(p)
	return p
}

// Tracker exposes the progress tracker for streaming.
func (p *ImportProcessor) Tracker() progress.Tracker {
	return p.tracker
}

// ImportFromFile parses a CSV or XLSX file and merges its valid rows.
func (p *ImportProcessor) ImportFromFile(ctx context.Context, raw []byte, format Format) (ImportResult, error) {
	return p.run(ctx, SourceFile, func(context.Context) ([]Row, error) {
		if p.maxFileBytes > 0 && int64(len(raw)) > p.maxFileBytes {
			return nil, &targeting.ParseError{Format: string(format), Err: ErrFileTooLarge}
		}
		return parseRows(raw, format)
	})
}

// ImportFromObject imports a file previously uploaded to object storage. The format is
// taken from the key's extension.
func (p *ImportProcessor) ImportFromObject(ctx context.Context, bucket, key string) (ImportResult, error) {
	if p.objects == nil {
		return ImportResult{}, ErrObjectsDisabled
	}
	return p.run(ctx, SourceObject, func(ctx context.Context) ([]Row, error) {
		format, err := FormatFromFilename(key)
		if err != nil {
			return nil, &targeting.ParseError{Err: err}
		}
		body, err := p.objects.GetObject(ctx, bucket, key)
		if err != nil {
			return nil, err
		}
		defer body.Close()

		limit := p.maxFileBytes
		if limit <= 0 {
			limit = 1 << 30
		}
		raw, err := io.ReadAll(io.LimitReader(body, limit+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read object %s: %w", key, err)
		}
		if int64(len(raw)) > limit {
			return nil, &targeting.ParseError{Format: string(format), Err: ErrFileTooLarge}
		}
		return parseRows(raw, format)
	})
}

// ImportFromCRM pulls customers through a CRM connector and merges the valid ones.
func (p *ImportProcessor) ImportFromCRM(ctx context.Context, cfg crm.ConnectorConfig) (ImportResult, error) {
	if p.crm == nil {
		return ImportResult{}, ErrCRMDisabled
	}
	if !cfg.Provider.Valid() {
		return ImportResult{}, fmt.Errorf("%w: unknown provider %q", ErrInvalidConnector, cfg.Provider)
	}
	return p.run(ctx, SourceCRM, func(ctx context.Context) ([]Row, error) {
		customers, err := p.crm.FetchCustomers(ctx, cfg)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, len(customers))
		for i, c := range customers {
			rows[i] = customerRow(i+1, c)
		}
		return rows, nil
	})
}

func customerRow(line int, c crm.Customer) Row {
	fields := map[string]string{
		fieldID:             c.ID,
		fieldName:           c.Name,
		fieldFirstName:      c.FirstName,
		fieldLastName:       c.LastName,
		fieldEmail:          c.Email,
		fieldPhone:          c.Phone,
		fieldWarrantyStatus: c.WarrantyStatus,
		fieldLoyaltyTier:    c.LoyaltyTier,
	}
	if len(c.Tags) > 0 {
		fields[fieldTags] = strings.Join(c.Tags, ";")
	}
	if c.VehicleAge != nil {
		fields[fieldVehicleAge] = c.VehicleAge.String()
	}
	if c.Mileage != nil {
		fields[fieldMileage] = c.Mileage.String()
	}
	return Row{Line: line, Fields: fields}
}

// run drives one batch: load rows, validate them, merge the survivors and report
// progress in steps of ten percent.
func (p *ImportProcessor) run(ctx context.Context, source Source, load func(context.Context) ([]Row, error)) (ImportResult, error) {
	jobID := JobIDFromContext(ctx)
	if jobID == "" {
		jobID = uuid.New().String()
	}
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "import_job_id", Value: jobID},
		observability.Field{Key: "import_source", Value: string(source)},
	)

	start := p.now()
	if p.metrics != nil {
		p.metrics.ImportsInFlight.Inc()
		defer p.metrics.ImportsInFlight.Dec()
	}

	rep := &reporter{tracker: p.tracker, logger: p.logger, jobID: jobID, source: source, last: -1, now: p.now}
	rep.advance(ctx, 0, "parsing")

	rows, err := load(ctx)
	if err != nil {
		var perr *targeting.ParseError
		if errors.As(err, &perr) {
			result := emptyResult()
			result.Rejected = append(result.Rejected, RowError{Row: 0, Reason: err.Error()})
			rep.finish(ctx, progress.StatusFailed, result, err)
			p.observe(ctx, source, "failed", start, result)
			p.logger.InfoWithError(ctx, "rejected unparseable import file", err)
			return result, err
		}
		return p.abort(ctx, rep, source, start, err)
	}
	rep.advance(ctx, 10, "validating")

	candidates := make([]targeting.Contact, 0, len(rows))
	rejected := []RowError{}
	lineOf := make(map[string]int, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return p.abort(ctx, rep, source, start, err)
		}

		contact, reason := p.rows.toContact(ctx, row)
		switch {
		case reason != "":
			rejected = append(rejected, RowError{Row: row.Line, Reason: reason})
		case lineOf[contact.ID] != 0:
			dup := &targeting.DuplicateIDError{IDs: []string{contact.ID}}
			rejected = append(rejected, RowError{Row: row.Line, Reason: dup.Error()})
		default:
			lineOf[contact.ID] = row.Line
			candidates = append(candidates, contact)
		}
		rep.advance(ctx, 10+(i+1)*70/len(rows), "validating")
	}
	rep.advance(ctx, 80, "merging")

	var commit func(context.Context, []targeting.Contact) error
	if p.persister != nil {
		commit = p.persister.PersistContacts
	}
	accepted, collided, err := p.contacts.Merge(ctx, candidates, commit)
	if err != nil {
		return p.abort(ctx, rep, source, start, err)
	}
	for _, c := range collided {
		dup := &targeting.DuplicateIDError{IDs: []string{c.ID}}
		rejected = append(rejected, RowError{Row: lineOf[c.ID], Reason: dup.Error()})
	}
	sort.SliceStable(rejected, func(i, j int) bool { return rejected[i].Row < rejected[j].Row })
	rep.advance(ctx, 90, "merged")

	result := ImportResult{Accepted: accepted, Rejected: rejected}
	if result.Accepted == nil {
		result.Accepted = []targeting.Contact{}
	}

	rep.finish(ctx, progress.StatusCompleted, result, nil)
	p.observe(ctx, source, "completed", start, result)
	if p.metrics != nil {
		p.metrics.ContactsLoaded.Set(float64(p.contacts.Len()))
	}
	if p.publisher != nil {
		p.publisher.PublishContactsImported(ctx, jobID, string(source), len(result.Accepted), len(result.Rejected))
	}
	p.logger.Info(ctx, fmt.Sprintf("import completed: %d accepted, %d rejected", len(result.Accepted), len(result.Rejected)))
	return result, nil
}

// abort ends a batch that merged nothing, either cancelled or failed.
func (p *ImportProcessor) abort(ctx context.Context, rep *reporter, source Source, start time.Time, err error) (ImportResult, error) {
	status := progress.StatusFailed
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = progress.StatusCancelled
		p.logger.Warn(ctx, "import cancelled, nothing merged")
	} else {
		p.logger.Error(ctx, "import failed, nothing merged", err)
	}
	// The batch context may be done already; the final event must still be recorded.
	rep.finish(context.WithoutCancel(ctx), status, ImportResult{}, err)
	p.observe(ctx, source, string(status), start, ImportResult{})
	return ImportResult{}, err
}

func (p *ImportProcessor) observe(ctx context.Context, source Source, status string, start time.Time, result ImportResult) {
	if p.metrics == nil {
		return
	}
	p.metrics.ImportDuration.WithLabelValues(string(source), status).Observe(p.now().Sub(start).Seconds())
	p.metrics.ImportRows.WithLabelValues(string(source), "accepted").Add(float64(len(result.Accepted)))
	p.metrics.ImportRows.WithLabelValues(string(source), "rejected").Add(float64(len(result.Rejected)))
}

// reporter emits every ten percent step exactly once, in order.
type reporter struct {
	tracker progress.Tracker
	logger  *observability.Logger
	jobID   string
	source  Source
	last    int
	now     func() time.Time
}

func (r *reporter) advance(ctx context.Context, percent int, stage string) {
	percent -= percent % 10
	for step := r.last + 1; step <= percent; step++ {
		if step%10 != 0 {
			continue
		}
		r.emit(ctx, progress.Event{Status: progress.StatusRunning, Percent: step, Stage: stage})
		r.last = step
	}
}

func (r *reporter) finish(ctx context.Context, status progress.Status, result ImportResult, err error) {
	e := progress.Event{
		Status:   status,
		Percent:  max(r.last, 0),
		Stage:    string(status),
		Accepted: len(result.Accepted),
		Rejected: len(result.Rejected),
	}
	if status == progress.StatusCompleted {
		e.Percent = 100
	}
	if err != nil {
		e.Error = err.Error()
	}
	r.emit(ctx, e)
	r.last = e.Percent
}

func (r *reporter) emit(ctx context.Context, e progress.Event) {
	e.JobID = r.jobID
	e.Source = string(r.source)
	e.UpdatedAt = r.now().UTC()
	if err := r.tracker.Report(ctx, e); err != nil {
		r.logger.Error(ctx, "failed to report import progress", err)
	}
}
