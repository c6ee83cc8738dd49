// Package session is the editing coordinator for one open karte. A Session
// owns the shared State, the update Bus and the four sections, and keeps
// them in sync with a Backend: load, save, list and delete, a live change
// subscription resolved last-write-wins at record granularity, and a soft
// presence entry refreshed by a heartbeat.
//
// There is no field-level merge. When another editor's newer save arrives,
// every section is overwritten with it and the Notifier is told.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/travel-karte/internal/domain"
	"github.com/pkordes/travel-karte/internal/excel"
)

// Backend is the persistence and change-feed surface a Session needs.
// *service.KarteService and *client.Client both satisfy it. Watch must
// close its channel once ctx ends.
type Backend interface {
	Create(ctx context.Context, k domain.Karte) (domain.Karte, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Karte, error)
	ListRecent(ctx context.Context, q domain.ListQuery) ([]domain.KarteListItem, error)
	Save(ctx context.Context, k domain.Karte) (domain.Karte, error)
	SetEditors(ctx context.Context, id uuid.UUID, editors map[string]domain.Editor) (domain.Karte, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Watch(ctx context.Context, id uuid.UUID) (<-chan domain.Change, error)
}

// Renderer turns a karte into export file bytes. *excel.Generator satisfies it.
type Renderer interface {
	Generate(k domain.Karte) ([]byte, error)
}

// ConfirmFunc asks the user whether unsaved changes may be discarded.
type ConfirmFunc func(ctx context.Context, prompt string) bool

var (
	// ErrCancelled is returned when the user keeps their unsaved changes.
	ErrCancelled = errors.New("session: cancelled by user")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("session: closed")
)

// Confirmation prompts.
const (
	PromptLoad = "保存されていない変更があります。別のカルテを開きますか？"
	PromptNew  = "保存されていない変更があります。新規カルテを作成しますか？"
)

// DefaultEchoWindow is how long pushes are ignored after a local save.
const DefaultEchoWindow = time.Second

// Option configures a Session.
type Option func(*Session)

// WithNotifier sets where user-facing messages go (default: the logger).
func WithNotifier(n Notifier) Option { return func(s *Session) { s.notifier = n } }

// WithConfirm sets the unsaved-changes prompt.
func WithConfirm(fn ConfirmFunc) Option { return func(s *Session) { s.confirm = fn } }

// WithRenderer replaces the excel workbook renderer used by Export.
func WithRenderer(r Renderer) Option { return func(s *Session) { s.renderer = r } }

// WithLogger sets the diagnostic logger (default: slog.Default).
func WithLogger(log *slog.Logger) Option { return func(s *Session) { s.log = log } }

// WithClock replaces time.Now wherever the session reads the clock.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// WithHeartbeat sets the presence refresh interval (default 60s).
func WithHeartbeat(d time.Duration) Option { return func(s *Session) { s.heartbeat = d } }

// WithEchoWindow sets how long pushes are ignored after a save (default 1s).
func WithEchoWindow(d time.Duration) Option { return func(s *Session) { s.echoWindow = d } }

// WithEditorTTL sets the age after which presence entries are pruned (default 5m).
func WithEditorTTL(d time.Duration) Option { return func(s *Session) { s.editorTTL = d } }

// Session coordinates one editor's work on one karte at a time.
//
// Lifecycle operations (Load, Save, New, Delete, Close) are serialised.
// Editing methods and accessors may be called from any goroutine.
type Session struct {
	backend    Backend
	identity   Identity
	notifier   Notifier
	confirm    ConfirmFunc
	renderer   Renderer
	log        *slog.Logger
	now        func() time.Time
	heartbeat  time.Duration
	echoWindow time.Duration
	editorTTL  time.Duration

	root   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	ops    sync.Mutex

	mu       sync.Mutex
	state    *State
	bus      *Bus
	basic    *BasicSection
	payments *PaymentSection
	expenses *ExpenseSection
	summary  *SummarySection
	comments []domain.Comment
	memo     string

	lastUpdated time.Time
	// baseline is the newest server timestamp this session has produced or
	// applied. Pushes at or before it never overwrite local state.
	baseline time.Time
	editors  map[string]domain.Editor
	dirty    bool
	edits    uint64

	updating  bool
	updateSeq uint64
	release   *time.Timer

	gen      uint64
	detachFn context.CancelFunc
	deleting uuid.UUID
	closed   bool
}

// New returns a Session showing a blank karte.
func New(backend Backend, identity Identity, opts ...Option) *Session {
	s := &Session{
		backend:    backend,
		identity:   identity,
		renderer:   excel.NewGenerator(),
		log:        slog.Default(),
		now:        time.Now,
		heartbeat:  domain.HeartbeatInterval,
		echoWindow: DefaultEchoWindow,
		editorTTL:  domain.EditorTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Log: s.log}
	}
	s.root, s.cancel = context.WithCancel(context.Background())

	s.state = &State{}
	s.bus = NewBus(s.log)
	s.basic = NewBasicSection(s.state, s.bus)
	s.payments = NewPaymentSection(s.state, s.bus)
	s.expenses = NewExpenseSection(s.state, s.bus)
	s.summary = NewSummarySection(s.state, s.bus)
	s.resetLocked()
	return s
}

// Load opens the karte with the given id. Unsaved changes are confirmed
// first. The record is fetched before the current one is let go, so a
// failed load leaves the session exactly as it was.
func (s *Session) Load(ctx context.Context, id uuid.UUID) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.ready(ctx, PromptLoad); err != nil {
		return err
	}

	k, err := s.backend.GetByID(ctx, id)
	if err != nil {
		msg := msgLoadFailed
		if errors.Is(err, domain.ErrNotFound) {
			msg = msgNotFound
		}
		s.log.Error("session: load failed", "karte_id", id, "error", err)
		s.notify(LevelError, msg)
		return fmt.Errorf("session.Session.Load: %w", err)
	}

	s.detach(ctx, true)

	s.mu.Lock()
	s.populate(k)
	s.state.SetKarteID(k.ID)
	s.lastUpdated = k.LastUpdated
	s.baseline = k.LastUpdated
	s.editors = s.pruned(k.Editors)
	s.dirty = false
	s.mu.Unlock()

	if err := s.attach(k.ID); err != nil {
		s.log.Warn("session: live subscription failed", "karte_id", k.ID, "error", err)
	}
	if err := s.writePresence(ctx, k.ID, true); err != nil {
		s.log.Warn("session: register editor failed", "karte_id", k.ID, "error", err)
		s.notify(LevelWarn, msgPresenceFailed)
	}
	s.notify(LevelInfo, msgLoaded)
	return nil
}

// Save writes the whole karte. An existing record keeps the presence map
// currently stored on the server; a new record is created with the local
// editor as its only entry and becomes the open record.
func (s *Session) Save(ctx context.Context) (domain.Karte, error) {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.isClosed() {
		return domain.Karte{}, ErrClosed
	}

	s.mu.Lock()
	doc := s.snapshotLocked()
	edits := s.edits
	if s.release != nil {
		s.release.Stop()
	}
	s.updating = true
	s.updateSeq++
	seq := s.updateSeq
	s.mu.Unlock()

	created := doc.ID == uuid.Nil
	saved, err := s.write(ctx, doc)
	if err != nil {
		s.mu.Lock()
		s.endUpdateLocked(seq)
		s.mu.Unlock()
		s.log.Error("session: save failed", "karte_id", doc.ID, "error", err)
		s.notify(LevelError, msgSaveFailed+err.Error())
		return domain.Karte{}, fmt.Errorf("session.Session.Save: %w", err)
	}

	s.mu.Lock()
	s.state.SetKarteID(saved.ID)
	s.lastUpdated = saved.LastUpdated
	if saved.LastUpdated.After(s.baseline) {
		s.baseline = saved.LastUpdated
	}
	s.editors = s.pruned(saved.Editors)
	if s.edits == edits {
		s.dirty = false
	}
	s.release = time.AfterFunc(s.echoWindow, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.endUpdateLocked(seq)
	})
	s.mu.Unlock()

	if created {
		if err := s.attach(saved.ID); err != nil {
			s.log.Warn("session: live subscription failed", "karte_id", saved.ID, "error", err)
		}
	}
	s.notify(LevelInfo, msgSaved)
	return saved, nil
}

func (s *Session) write(ctx context.Context, doc domain.Karte) (domain.Karte, error) {
	if doc.ID == uuid.Nil {
		doc.Editors = map[string]domain.Editor{s.identity.ID: s.localEditor()}
		return s.backend.Create(ctx, doc)
	}
	// Presence is owned by the server copy. Another editor's heartbeat
	// landing between this read and the write below is lost.
	cur, err := s.backend.GetByID(ctx, doc.ID)
	if err != nil {
		return domain.Karte{}, err
	}
	doc.Editors = cur.Editors
	return s.backend.Save(ctx, doc)
}

func (s *Session) endUpdateLocked(seq uint64) {
	if s.updateSeq == seq {
		s.updating = false
	}
}

// New discards the open karte, after confirmation, and shows a blank one.
func (s *Session) New(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if err := s.ready(ctx, PromptNew); err != nil {
		return err
	}
	s.detach(ctx, true)
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	return nil
}

// Delete removes a karte from the backend. Deleting the open karte leaves
// the session on a blank new record.
func (s *Session) Delete(ctx context.Context, id uuid.UUID) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.isClosed() {
		return ErrClosed
	}

	s.mu.Lock()
	s.deleting = id
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.deleting = uuid.Nil
		s.mu.Unlock()
	}()

	if err := s.backend.Delete(ctx, id); err != nil {
		s.log.Error("session: delete failed", "karte_id", id, "error", err)
		s.notify(LevelError, msgDeleteFailed+err.Error())
		return fmt.Errorf("session.Session.Delete: %w", err)
	}

	if s.ID() == id {
		s.detach(ctx, false)
		s.mu.Lock()
		s.resetLocked()
		s.mu.Unlock()
	}
	s.notify(LevelInfo, msgDeleted)
	return nil
}

// ListRecent returns the most recently updated kartes, newest first. A
// non-blank search narrows that window; when nothing in it matches the user
// is told so.
func (s *Session) ListRecent(ctx context.Context, search string) ([]domain.KarteListItem, error) {
	search = strings.TrimSpace(search)
	items, err := s.backend.ListRecent(ctx, domain.ListQuery{Limit: domain.ListLimit, Search: search})
	if err != nil {
		s.log.Error("session: list failed", "error", err)
		s.notify(LevelError, msgListFailed)
		return nil, fmt.Errorf("session.Session.ListRecent: %w", err)
	}
	if search != "" && len(items) == 0 {
		s.notify(LevelInfo, domain.NoMatchText(search))
	}
	return items, nil
}

// Close detaches the live subscription and removes the local editor from
// the open record. It is safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.ops.Lock()
	defer s.ops.Unlock()
	if s.isClosed() {
		return nil
	}
	s.detach(ctx, true)

	s.mu.Lock()
	s.closed = true
	if s.release != nil {
		s.release.Stop()
	}
	s.mu.Unlock()
	s.cancel()
	return nil
}

// Export renders the in-memory karte, unsaved edits included.
func (s *Session) Export() (domain.ExportFile, error) {
	k := s.Snapshot()
	content, err := s.renderer.Generate(k)
	if err != nil {
		s.log.Error("session: export failed", "karte_id", k.ID, "error", err)
		s.notify(LevelError, msgExportFailed+err.Error())
		return domain.ExportFile{}, fmt.Errorf("session.Session.Export: %w", err)
	}
	s.notify(LevelInfo, msgExported)
	return domain.ExportFile{
		Name:        excel.FileName(k, s.now()),
		ContentType: excel.ContentType,
		Content:     content,
	}, nil
}

// ready checks the session is open and, when there are unsaved changes,
// asks for confirmation. Without a ConfirmFunc changes are discarded.
func (s *Session) ready(ctx context.Context, prompt string) error {
	s.mu.Lock()
	closed, dirty := s.closed, s.dirty
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if dirty && s.confirm != nil && !s.confirm(ctx, prompt) {
		return ErrCancelled
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// populate overwrites every section from k. Missing blocks fall back to
// the blank template. Callers hold s.mu.
func (s *Session) populate(k domain.Karte) {
	if k.Basic == (domain.BasicInfo{}) {
		k.Basic = domain.NewKarte(s.now()).Basic
	}
	s.basic.reset(k.Basic)
	s.payments.reset(k.Payments)
	s.expenses.reset(k.Expenses)
	s.comments = slices.Clone(k.Comments)
	s.memo = k.Memo
	s.bus.Publish(Event{Kind: SummaryUpdated, Sender: SourceManager})
}

func (s *Session) resetLocked() {
	s.populate(domain.NewKarte(s.now()))
	s.state.SetKarteID(uuid.Nil)
	s.lastUpdated = time.Time{}
	s.baseline = time.Time{}
	s.editors = map[string]domain.Editor{}
	s.dirty = false
}

// snapshotLocked assembles the current sections into one record.
func (s *Session) snapshotLocked() domain.Karte {
	k := domain.Karte{
		ID:          s.state.KarteID(),
		Basic:       s.basic.Info(),
		Payments:    s.payments.Items(),
		Expenses:    s.expenses.Items(),
		Comments:    slices.Clone(s.comments),
		Memo:        s.memo,
		LastUpdated: s.lastUpdated,
		Editors:     domain.CopyEditors(s.editors),
	}
	k.Derive()
	k.Summary = s.summary.Summary()
	return k
}

func (s *Session) pruned(editors map[string]domain.Editor) map[string]domain.Editor {
	return domain.PruneEditors(editors, s.now(), s.editorTTL)
}

func (s *Session) localEditor() domain.Editor {
	return domain.Editor{Name: s.identity.Name, LastActive: s.now().UTC()}
}

func (s *Session) notify(level Level, message string) {
	s.notifier.Notify(level, message)
}
