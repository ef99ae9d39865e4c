package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nfrund/userhome/internal/domain"
)

// PhoneState is the state of a phone verification dialog.
type PhoneState int

const (
	PhoneInit PhoneState = iota
	PhonePolling
	PhoneSendFailed
	PhoneConfirmed
	PhoneClosed
)

func (s PhoneState) String() string {
	switch s {
	case PhonePolling:
		return "polling"
	case PhoneSendFailed:
		return "send-failed"
	case PhoneConfirmed:
		return "confirmed"
	case PhoneClosed:
		return "closed"
	}
	return "init"
}

// SendFailedMessage is shown when no code could be sent.
const SendFailedMessage = "Failed to send verification code. Please try again later."

// DefaultPollInterval is how often a running verification asks whether the
// phone was confirmed.
const DefaultPollInterval = time.Second

// PhoneVerification sends a code to a phone and then polls the verified
// phones until the label shows up, or until the user submits the code.
type PhoneVerification struct {
	Label  string
	Number string

	v        *View
	interval time.Duration

	mu     sync.Mutex
	state  PhoneState
	key    string
	cancel context.CancelFunc
	// done is closed when the poll loop has returned.
	done chan struct{}
}

// StartPhoneVerification opens the verification dialog for label, closing
// any verification already running in this view.
func (v *View) StartPhoneVerification(ctx context.Context, label string) (*PhoneVerification, error) {
	u := v.User()
	if u == nil {
		return nil, fmt.Errorf("verify phone %q: profile not loaded", label)
	}
	number, ok := u.Phone[label]
	if !ok {
		return nil, fmt.Errorf("verify phone %q: %w", label, domain.ErrNotFound)
	}

	v.ClosePhoneVerification()

	p := &PhoneVerification{Label: label, Number: number, v: v, interval: v.pollInterval}
	v.mu.Lock()
	v.phone = p
	v.mu.Unlock()

	p.start(ctx)
	return p, nil
}

// PhoneVerification returns the verification running in this view, if any.
func (v *View) PhoneVerification() *PhoneVerification {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phone
}

// ClosePhoneVerification closes the running verification, if any.
func (v *View) ClosePhoneVerification() {
	v.mu.Lock()
	p := v.phone
	v.phone = nil
	v.mu.Unlock()
	if p != nil {
		p.Close()
	}
}

// recordVerifiedPhone marks a phone verified in the cached profile.
func (v *View) recordVerifiedPhone(label, number string) {
	v.updateUser(func(u *domain.User) { u.VerifiedPhones[label] = number })
}

func (p *PhoneVerification) start(ctx context.Context) {
	key, err := p.v.svc.Profile.SendPhoneVerification(ctx, p.v.Username, p.Label)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != PhoneInit {
		return
	}
	if err != nil {
		p.v.log.Warn("Failed to send phone verification code", "label", p.Label, "error", err)
		p.state = PhoneSendFailed
		return
	}

	// The poll outlives the request that started it but keeps its values,
	// the access token among them.
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.key = key
	p.state = PhonePolling
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.poll(pollCtx, p.done)
}

func (p *PhoneVerification) poll(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		phones, err := p.v.svc.Profile.GetVerifiedPhones(ctx, p.v.Username)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.v.log.Debug("Verified phone poll failed", "label", p.Label, "error", err)
			continue
		}
		if _, ok := phones[p.Label]; ok {
			if p.finish(PhoneConfirmed) {
				p.v.recordVerifiedPhone(p.Label, p.Number)
				p.v.events.PhoneVerified(context.WithoutCancel(ctx), p.v.ID, p.Label, p.Number)
			}
			return
		}
	}
}

// finish moves an open verification into a final state and stops the poll
// without waiting for it. It reports false when the verification had already
// ended.
func (p *PhoneVerification) finish(state PhoneState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case PhoneConfirmed, PhoneClosed:
		return false
	}
	p.state = state
	if p.cancel != nil {
		p.cancel()
	}
	return true
}

// State returns the current state.
func (p *PhoneVerification) State() PhoneState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Submit checks a code the user typed in. A wrong code keeps the dialog open
// with the error on the code field; other failures leave it open unchanged.
func (p *PhoneVerification) Submit(ctx context.Context, code string) Outcome[struct{}] {
	p.mu.Lock()
	key := p.key
	p.mu.Unlock()

	err := p.v.svc.Profile.VerifyPhone(ctx, p.v.Username, p.Label, key, code)
	switch {
	case err == nil:
		if p.finish(PhoneConfirmed) {
			p.v.recordVerifiedPhone(p.Label, p.Number)
		}
		p.wait()
		return closed(struct{}{})
	case domain.StatusOf(err) == http.StatusUnprocessableEntity:
		return invalid[struct{}]("smscode", domain.CodeInvalidCode)
	}
	p.v.log.Warn("Phone verification submit failed", "label", p.Label, "error", err)
	return invalid[struct{}]("", "")
}

// Close ends the verification. It is safe to call more than once and, once
// it returns, no further poll request is made.
func (p *PhoneVerification) Close() {
	p.finish(PhoneClosed)
	p.wait()
}

func (p *PhoneVerification) wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
