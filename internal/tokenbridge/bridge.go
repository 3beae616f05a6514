// Package tokenbridge drives the hosted-fields tokenizer through an explicit
// lifecycle: load dependencies, load the vendor SDK, bind the card form, then
// exchange the buyer's card entry for a single-use token. The token is handed
// to the caller exactly once and never stored or logged here.
package tokenbridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/lumastore/storefront-backend/pkg/errors"
	"github.com/lumastore/storefront-backend/pkg/logger"
)

// State is the bridge lifecycle position.
type State int

const (
	StateUninitialized State = iota
	StateDependenciesLoading
	StateSdkLoading
	StateBound
	StateAwaitingToken
	StateResolved
	StateFailed
)

var stateNames = map[State]string{
	StateUninitialized:       "uninitialized",
	StateDependenciesLoading: "dependencies_loading",
	StateSdkLoading:          "sdk_loading",
	StateBound:               "bound",
	StateAwaitingToken:       "awaiting_token",
	StateResolved:            "resolved",
	StateFailed:              "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// statusOK is the tokenizer's success status.
const statusOK = 0

// defaultTokenTimeout bounds how long RequestToken blocks the caller.
const defaultTokenTimeout = 30 * time.Second

// TokenResponse is the tokenizer capability contract.
type TokenResponse struct {
	Status           int
	UserMessage      string
	TechnicalDetails string
	Data             struct {
		SingleUseToken string
	}
}

// Tokenizer is the external hosted-fields capability. Bind attaches the card
// form; CreateToken asynchronously reports through the callback.
type Tokenizer interface {
	Bind(ctx context.Context) error
	CreateToken(ctx context.Context, callback func(TokenResponse))
}

// Bridge serializes the tokenizer lifecycle for one checkout session.
type Bridge struct {
	mu          sync.Mutex
	state       State
	sdkLoaded   bool
	formMounted bool

	tokenizer Tokenizer
	timeout   time.Duration
	logg      *logger.Logger
}

// Params configures a Bridge.
type Params struct {
	Tokenizer    Tokenizer
	TokenTimeout time.Duration
	Logger       *logger.Logger
}

// New builds an unstarted bridge.
func New(params Params) (*Bridge, error) {
	if params.Tokenizer == nil {
		return nil, fmt.Errorf("tokenizer is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	timeout := params.TokenTimeout
	if timeout <= 0 {
		timeout = defaultTokenTimeout
	}
	return &Bridge{
		state:     StateUninitialized,
		tokenizer: params.Tokenizer,
		timeout:   timeout,
		logg:      params.Logger,
	}, nil
}

// State reports the current lifecycle position.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Start begins dependency loading. Starting twice is a state conflict.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateUninitialized {
		return b.stateConflict("start")
	}
	b.state = StateDependenciesLoading
	return nil
}

// DependenciesLoaded moves the bridge into SDK loading.
func (b *Bridge) DependenciesLoaded(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateDependenciesLoading {
		return b.stateConflict("dependencies loaded")
	}
	b.state = StateSdkLoading
	return nil
}

// SdkLoaded records the SDK-ready half of the readiness gate.
func (b *Bridge) SdkLoaded(ctx context.Context) error {
	return b.readinessSignal(ctx, func() { b.sdkLoaded = true })
}

// FormMounted records the form-ready half of the readiness gate.
func (b *Bridge) FormMounted(ctx context.Context) error {
	return b.readinessSignal(ctx, func() { b.formMounted = true })
}

// readinessSignal applies one half of the gate and binds exactly once when
// both halves have arrived, whatever their order. Duplicate signals after the
// bind are ignored.
func (b *Bridge) readinessSignal(ctx context.Context, apply func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateSdkLoading:
	case StateBound, StateAwaitingToken, StateResolved:
		return nil
	default:
		return b.stateConflict("readiness signal")
	}

	apply()
	if !b.sdkLoaded || !b.formMounted {
		return nil
	}

	if err := b.tokenizer.Bind(ctx); err != nil {
		b.state = StateFailed
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "binding card form")
	}
	b.state = StateBound
	b.logg.Info(ctx, "tokenizer bound")
	return nil
}

// RequestToken asks the tokenizer for a single-use token and blocks until the
// callback fires, the timeout passes, or the context ends. On timeout the
// caller is released but the in-flight tokenizer call is not canceled; a late
// callback is dropped.
func (b *Bridge) RequestToken(ctx context.Context) (string, error) {
	b.mu.Lock()
	if b.state != StateBound {
		defer b.mu.Unlock()
		return "", b.stateConflict("request token")
	}
	b.state = StateAwaitingToken
	b.mu.Unlock()

	results := make(chan TokenResponse, 1)
	go b.tokenizer.CreateToken(ctx, func(resp TokenResponse) {
		select {
		case results <- resp:
		default:
		}
	})

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case resp := <-results:
		return b.resolve(ctx, resp)
	case <-timer.C:
		b.setState(StateFailed)
		return "", pkgerrors.New(pkgerrors.CodeDependency, "tokenization timed out")
	case <-ctx.Done():
		b.setState(StateFailed)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), "tokenization canceled")
	}
}

// Reset rearms a resolved or failed bridge for another attempt. The form
// stays bound.
func (b *Bridge) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateResolved, StateFailed:
		if b.sdkLoaded && b.formMounted {
			b.state = StateBound
			return nil
		}
		return b.stateConflict("reset")
	default:
		return b.stateConflict("reset")
	}
}

func (b *Bridge) resolve(ctx context.Context, resp TokenResponse) (string, error) {
	if resp.Status != statusOK {
		b.setState(StateFailed)
		msg := strings.TrimSpace(resp.UserMessage)
		if msg == "" {
			msg = "card tokenization failed"
		}
		err := pkgerrors.New(pkgerrors.CodePaymentDeclined, msg)
		if details := strings.TrimSpace(resp.TechnicalDetails); details != "" {
			err = err.WithDetails(map[string]any{
				"tokenizer_status":  resp.Status,
				"tokenizer_details": details,
			})
		}
		return "", err
	}

	token := strings.TrimSpace(resp.Data.SingleUseToken)
	if token == "" {
		b.setState(StateFailed)
		return "", pkgerrors.New(pkgerrors.CodeDependency, "tokenizer returned no token")
	}

	b.setState(StateResolved)
	b.logg.Info(ctx, "single-use token issued")
	return token, nil
}

func (b *Bridge) setState(state State) {
	b.mu.Lock()
	b.state = state
	b.mu.Unlock()
}

func (b *Bridge) stateConflict(action string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot %s in state %s", action, b.state))
}
