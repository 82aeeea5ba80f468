// Package session owns one proposal draft: form state, the attachment slot,
// the derived prompt, the latest result and the submission state machine.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"grantdraft/internal/credential"
	"grantdraft/internal/genclient"
	"grantdraft/internal/ingest"
	"grantdraft/internal/prompt"
	"grantdraft/internal/proposal"
)

type State string

const (
	StateIdle               State = "idle"
	StateCredentialCheck    State = "credential_check"
	StateAwaitingCredential State = "awaiting_credential"
	StateGenerating         State = "generating"
)

// Policy decides which generation failures send the session back to the
// credential prompt.
type Policy string

const (
	PolicyAuth Policy = "auth"
	PolicyAny  Policy = "any"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PolicyAuth:
		return PolicyAuth, nil
	case PolicyAny:
		return PolicyAny, nil
	default:
		return "", fmt.Errorf("session: unknown credential policy %q", s)
	}
}

const (
	NoticeTitleRequired    = "사업명은 필수 입력 사항입니다."
	NoticeGenerationFailed = "제안서 생성에 실패했습니다. 잠시 후 다시 시도해주세요."
	NoticeCredentialNeeded = "API 키를 입력해주세요."
	NoticeAttached         = "참고 자료가 첨부되었습니다."
)

var (
	ErrTitleRequired      = errors.New("session: project title is required")
	ErrBusy               = errors.New("session: a submission is already in progress")
	ErrCredentialRequired = errors.New("session: credential required")
	ErrNotAwaiting        = errors.New("session: not awaiting a credential")
)

type NoticeKind string

const (
	NoticeNone  NoticeKind = ""
	NoticeInfo  NoticeKind = "info"
	NoticeError NoticeKind = "error"
)

// Notice is the last user-facing message.
type Notice struct {
	Kind    NoticeKind `json:"kind,omitempty"`
	Message string     `json:"message,omitempty"`
}

// CredentialSource is what a session needs from the credential provider.
// A locked source refuses Save, so failures never reopen credential entry.
type CredentialSource interface {
	Current() credential.Credential
	Save(ctx context.Context, value string) error
	Locked() bool
}

type Options struct {
	Template   prompt.Template
	Sanitize   bool
	FieldLimit int
	Policy     Policy
	Logger     *zap.Logger
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Template.Style == "" {
		o.Template = prompt.Standard
	}
	if o.FieldLimit <= 0 {
		o.FieldLimit = prompt.DefaultFieldLimit
	}
	if o.Policy == "" {
		o.Policy = PolicyAuth
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type Session struct {
	id    string
	gen   genclient.Generator
	creds CredentialSource
	opts  Options
	log   *zap.Logger

	mu           sync.Mutex
	state        State
	tpl          prompt.Template
	agency       proposal.AgencyInfo
	project      proposal.ProjectInfo
	file         *proposal.AttachedFile
	fileRevision int
	prompt       string
	result       string
	notice       Notice
	updatedAt    time.Time
	closed       bool
	changed      chan struct{}
}

func New(id string, gen genclient.Generator, creds CredentialSource, opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		id:      id,
		gen:     gen,
		creds:   creds,
		opts:    opts,
		log:     opts.Logger.With(zap.String("session", id)),
		state:   StateIdle,
		tpl:     opts.Template,
		changed: make(chan struct{}),
	}
	s.recomputeLocked()
	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) SetAgency(a proposal.AgencyInfo) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agency = a
	s.touchLocked()
	return s.snapshotLocked()
}

func (s *Session) SetProject(p proposal.ProjectInfo) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.project = p
	if strings.TrimSpace(p.Title) != "" && s.notice.Message == NoticeTitleRequired {
		s.notice = Notice{}
	}
	s.touchLocked()
	return s.snapshotLocked()
}

func (s *Session) SetStyle(name string) (Snapshot, error) {
	tpl, err := prompt.Lookup(name)
	if err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tpl = tpl
	s.touchLocked()
	return s.snapshotLocked(), nil
}

// ApplyForm replaces agency, project and, when set, style in one step.
func (s *Session) ApplyForm(f proposal.Form) (Snapshot, error) {
	var tpl *prompt.Template
	if f.Style != "" {
		t, err := prompt.Lookup(f.Style)
		if err != nil {
			return Snapshot{}, err
		}
		tpl = &t
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agency, s.project = f.Agency, f.Project
	if tpl != nil {
		s.tpl = *tpl
	}
	s.touchLocked()
	return s.snapshotLocked(), nil
}

// Attach validates and stores a document read from r. On rejection the
// current attachment is kept and the notice is recorded.
func (s *Session) Attach(name, mimeType string, size int64, r io.Reader) (Snapshot, error) {
	file, err := ingest.Ingest(name, mimeType, size, r)
	return s.attach(file, err)
}

// AttachDataURL is Attach for a data URL payload.
func (s *Session) AttachDataURL(name, dataURL string) (Snapshot, error) {
	file, err := ingest.FromDataURL(name, dataURL)
	return s.attach(file, err)
}

func (s *Session) attach(file *proposal.AttachedFile, err error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			s.notice = Notice{Kind: NoticeError, Message: verr.Notice}
		}
		s.log.Info("attachment rejected", zap.Error(err))
		s.notifyLocked()
		return s.snapshotLocked(), err
	}
	s.file = file
	s.notice = Notice{Kind: NoticeInfo, Message: NoticeAttached}
	s.touchLocked()
	return s.snapshotLocked(), nil
}

// RemoveAttachment clears the slot and bumps the revision so a front end can
// reset its file input.
func (s *Session) RemoveAttachment() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = nil
	s.fileRevision++
	s.touchLocked()
	return s.snapshotLocked()
}

// Prompt returns the prompt for the current form state.
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Result returns the latest generated draft, if any.
func (s *Session) Result() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != ""
}

// Submit starts a generation. It returns once the request is in flight;
// use Await to block until it settles. The call is detached from ctx
// cancellation.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateGenerating, StateCredentialCheck:
		return ErrBusy
	}
	return s.beginLocked(ctx)
}

// ProvideCredential saves a key entered while awaiting one and resumes the
// submission.
func (s *Session) ProvideCredential(ctx context.Context, value string) error {
	s.mu.Lock()
	if s.state != StateAwaitingCredential {
		s.mu.Unlock()
		return ErrNotAwaiting
	}
	s.mu.Unlock()

	if err := s.creds.Save(ctx, value); err != nil {
		if errors.Is(err, credential.ErrEmpty) || errors.Is(err, credential.ErrLocked) {
			return err
		}
		// The value is held in memory even when it could not be persisted.
		s.log.Warn("credential not persisted", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingCredential {
		return ErrNotAwaiting
	}
	return s.beginLocked(ctx)
}

func (s *Session) CancelCredential() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingCredential {
		return ErrNotAwaiting
	}
	s.state = StateIdle
	s.notice = Notice{}
	s.touchLocked()
	return nil
}

func (s *Session) beginLocked(ctx context.Context) error {
	if !s.hasTitleLocked() {
		if s.state == StateAwaitingCredential {
			s.state = StateIdle
		}
		s.notice = Notice{Kind: NoticeError, Message: NoticeTitleRequired}
		s.notifyLocked()
		return ErrTitleRequired
	}

	s.state = StateCredentialCheck
	cred := s.creds.Current()
	if cred.Empty() {
		s.state = StateAwaitingCredential
		s.notice = Notice{Kind: NoticeInfo, Message: NoticeCredentialNeeded}
		s.touchLocked()
		return ErrCredentialRequired
	}

	s.state = StateGenerating
	s.notice = Notice{}
	s.touchLocked()

	var file *proposal.AttachedFile
	if s.file != nil {
		f := *s.file
		file = &f
	}
	go s.generate(context.WithoutCancel(ctx), s.prompt, cred, file)
	return nil
}

func (s *Session) generate(ctx context.Context, text string, cred credential.Credential, file *proposal.AttachedFile) {
	out, err := s.gen.Generate(ctx, text, cred, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.result = out
		s.state = StateIdle
		s.notice = Notice{}
		s.touchLocked()
		return
	}

	s.log.Warn("generation failed", zap.Error(err))
	s.notice = Notice{Kind: NoticeError, Message: NoticeGenerationFailed}
	s.state = StateIdle
	if !s.creds.Locked() && (s.opts.Policy == PolicyAny || genclient.IsAuthError(err)) {
		s.state = StateAwaitingCredential
	}
	s.touchLocked()
}

// Await blocks until no submission is in flight, then returns the snapshot.
func (s *Session) Await(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		snap := s.snapshotLocked()
		ch := s.changed
		s.mu.Unlock()
		if snap.State != StateGenerating && snap.State != StateCredentialCheck {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return snap, ctx.Err()
		case <-ch:
		}
	}
}

// Subscribe emits the current snapshot and then one per change, dropping
// stale ones for slow readers, until ctx ends or the session is closed.
func (s *Session) Subscribe(ctx context.Context) <-chan Snapshot {
	out := make(chan Snapshot, 4)
	go func() {
		defer close(out)
		for {
			s.mu.Lock()
			snap := s.snapshotLocked()
			ch := s.changed
			closed := s.closed
			s.mu.Unlock()

			pushLatest(out, snap)
			if closed {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ch:
			}
		}
	}()
	return out
}

// Close ends all subscriptions. An in-flight generation still completes.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.notifyLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// hasTitleLocked checks the title as it will appear in the prompt.
func (s *Session) hasTitleLocked() bool {
	title := s.project.Title
	if s.opts.Sanitize {
		title = prompt.SanitizeField(title, s.opts.FieldLimit)
	}
	return strings.TrimSpace(title) != ""
}

func (s *Session) recomputeLocked() {
	agency, project := s.agency, s.project
	if s.opts.Sanitize {
		agency, project = prompt.Sanitize(agency, project, s.opts.FieldLimit)
	}
	s.prompt = s.tpl.Assemble(agency, project, s.file)
}

func (s *Session) touchLocked() {
	s.recomputeLocked()
	s.updatedAt = s.opts.Now()
	s.notifyLocked()
}

func (s *Session) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func pushLatest(out chan Snapshot, snap Snapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- snap:
	default:
	}
}
