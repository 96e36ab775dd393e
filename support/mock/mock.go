// Package mock is the fake Runtime used by every actor's unit tests,
// grounded on the teacher's support/mock.Builder/mock.Runtime
// (mock.NewBuilder(ctx, receiver).WithCaller(...).Build(t), rt.Call(...),
// rt.ExpectSend(...), rt.Verify()) — reduced to the surface this bridge's
// simpler Runtime interface needs, since there is no actor-type registry
// or on-chain message nonce here.
package mock

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/btcpeg/bridge-core/actors/abi"
	"github.com/btcpeg/bridge-core/actors/abi/big"
	"github.com/btcpeg/bridge-core/actors/runtime"
	"github.com/btcpeg/bridge-core/actors/runtime/exitcode"
	"github.com/btcpeg/bridge-core/actors/util/adt"
	"github.com/btcpeg/bridge-core/actors/util/ipldstore"
)

// Builder configures a Runtime before Build, mirroring the teacher's
// mock.Builder fluent API.
type Builder struct {
	ctx     context.Context
	self    abi.Address
	caller  abi.Address
	epoch   abi.ChainEpoch
	balance big.Int
}

func NewBuilder(ctx context.Context, self abi.Address) *Builder {
	return &Builder{ctx: ctx, self: self, balance: big.Zero()}
}

func (b *Builder) WithCaller(addr abi.Address) *Builder {
	b.caller = addr
	return b
}

func (b *Builder) WithEpoch(e abi.ChainEpoch) *Builder {
	b.epoch = e
	return b
}

func (b *Builder) WithBalance(v big.Int) *Builder {
	b.balance = v
	return b
}

func (b *Builder) Build(t testing.TB) *Runtime {
	return &Runtime{
		t:       t,
		ctx:     b.ctx,
		self:    b.self,
		caller:  b.caller,
		epoch:   b.epoch,
		balance: b.balance,
		store:   ipldstore.NewMemoryStore(),
	}
}

type sendExpectation struct {
	to     abi.Address
	method runtime.Method
	value  big.Int
	ret    interface{}
	code   exitcode.ExitCode
}

// Runtime is the fake runtime.Runtime driven directly by test code, with
// no transaction log or replay: every call happens against live, mutable
// fields, which is sufficient for the single-threaded, non-concurrent
// actor model this bridge uses.
type Runtime struct {
	t       testing.TB
	ctx     context.Context
	self    abi.Address
	caller  abi.Address
	epoch   abi.ChainEpoch
	balance big.Int
	store   adt.Store

	state interface{}

	sendQueue []sendExpectation
	events    []Event
}

// Event is a recorded Emit call, retained for test assertions.
type Event struct {
	Name   string
	Fields map[string]interface{}
}

var _ runtime.Runtime = (*Runtime)(nil)

// WithCaller/WithEpoch/WithBalance mutate the harness in place between
// calls, standing in for what would be a fresh message from a different
// caller or a block-height advance on a real deployment.
func (rt *Runtime) WithCaller(addr abi.Address) *Runtime {
	rt.caller = addr
	return rt
}

func (rt *Runtime) WithEpoch(e abi.ChainEpoch) *Runtime {
	rt.epoch = e
	return rt
}

func (rt *Runtime) WithBalance(v big.Int) *Runtime {
	rt.balance = v
	return rt
}

func (rt *Runtime) Caller() abi.Address      { return rt.caller }
func (rt *Runtime) Receiver() abi.Address    { return rt.self }
func (rt *Runtime) CurrEpoch() abi.ChainEpoch { return rt.epoch }
func (rt *Runtime) CurrentBalance() big.Int  { return rt.balance }
func (rt *Runtime) Store() adt.Store         { return rt.store }

func (rt *Runtime) ValidateImmediateCallerIs(addrs ...abi.Address) {
	for _, a := range addrs {
		if rt.caller == a {
			return
		}
	}
	rt.Abortf(exitcode.ErrForbidden, "caller %s is not among expected callers %v", rt.caller, addrs)
}

func (rt *Runtime) ValidateImmediateCallerAcceptAny() {}

func (rt *Runtime) Abortf(code exitcode.ExitCode, msg string, args ...interface{}) {
	rerr := &exitcode.RuntimeError{Code: code, Message: fmt.Sprintf(msg, args...)}
	for _, a := range args {
		if err, ok := a.(error); ok {
			rerr.Cause = err
		}
	}
	panic(rerr)
}

func (rt *Runtime) Log(_ runtime.LogLevel, msg string, args ...interface{}) {
	rt.t.Logf(msg, args...)
}

func (rt *Runtime) Emit(event string, fields map[string]interface{}) {
	rt.events = append(rt.events, Event{Name: event, Fields: fields})
}

// Events returns every Emit call recorded since construction, in order.
func (rt *Runtime) Events() []Event { return rt.events }

// --- state handle ------------------------------------------------------

func (rt *Runtime) State() runtime.StateHandle { return (*stateHandle)(rt) }

type stateHandle Runtime

func (h *stateHandle) Readonly(out interface{}) {
	rt := (*Runtime)(h)
	if rt.state == nil {
		rt.t.Fatalf("mock: no state created yet")
	}
	copyState(rt.state, out)
}

func (h *stateHandle) Transaction(out interface{}, fn func()) {
	rt := (*Runtime)(h)
	if rt.state == nil {
		rt.t.Fatalf("mock: no state created yet")
	}
	copyState(rt.state, out)
	fn()
	copyState(out, rt.state)
}

func (h *stateHandle) Create(initial interface{}) {
	rt := (*Runtime)(h)
	rt.state = initial
}

// copyState assigns *dst = *src via reflection, where both are pointers to
// the same underlying state struct type. This is the mock's stand-in for
// a real transaction envelope's marshal/unmarshal round trip through the
// store, sufficient because both ends run in the same process.
func copyState(src, dst interface{}) {
	sv := reflect.ValueOf(src)
	dv := reflect.ValueOf(dst)
	if sv.Kind() != reflect.Ptr || dv.Kind() != reflect.Ptr {
		panic("mock: state handle requires pointer arguments")
	}
	dv.Elem().Set(sv.Elem())
}

// GetState is a test-only convenience equivalent to Readonly, named to
// match the teacher's rt.GetState(&st) call sites.
func (rt *Runtime) GetState(out interface{}) {
	rt.State().Readonly(out)
}

// --- send scripting ------------------------------------------------------

// ExpectSend enqueues a collaborator call the actor under test is expected
// to make, FIFO, mirroring the teacher's rt.ExpectSend(...).
func (rt *Runtime) ExpectSend(to abi.Address, method runtime.Method, value big.Int, ret interface{}, code exitcode.ExitCode) {
	rt.sendQueue = append(rt.sendQueue, sendExpectation{to: to, method: method, value: value, ret: ret, code: code})
}

func (rt *Runtime) Send(to abi.Address, method runtime.Method, _ interface{}, value big.Int) (runtime.SendReturn, exitcode.ExitCode) {
	if len(rt.sendQueue) == 0 {
		rt.t.Fatalf("mock: unexpected Send(to=%s, method=%d, value=%s) with no expectation queued", to, method, value)
	}
	exp := rt.sendQueue[0]
	rt.sendQueue = rt.sendQueue[1:]
	if exp.to != to || exp.method != method {
		rt.t.Fatalf("mock: Send(to=%s, method=%d) does not match expected Send(to=%s, method=%d)", to, method, exp.to, exp.method)
	}
	if !exp.value.Equals(value) {
		rt.t.Fatalf("mock: Send value %s does not match expected %s", value, exp.value)
	}
	return &sendReturn{v: exp.ret}, exp.code
}

// Verify asserts every scripted ExpectSend was consumed, mirroring the
// teacher's rt.Verify().
func (rt *Runtime) Verify() {
	if len(rt.sendQueue) != 0 {
		rt.t.Fatalf("mock: %d expected Send call(s) were never made", len(rt.sendQueue))
	}
}

type sendReturn struct{ v interface{} }

func (s *sendReturn) Into(out interface{}) error {
	if s.v == nil {
		return nil
	}
	copyState(s.v, out)
	return nil
}

// --- invocation helpers --------------------------------------------------

// Call invokes an actor method (a bound method value such as
// actor.Mint) with params, returning its single return value. Any abort
// propagates as a panic of *exitcode.RuntimeError — wrap with ExpectAbort
// to assert a specific failure.
func (rt *Runtime) Call(method interface{}, params interface{}) interface{} {
	mv := reflect.ValueOf(method)
	results := mv.Call([]reflect.Value{reflect.ValueOf(rt), reflect.ValueOf(params)})
	if len(results) != 1 {
		rt.t.Fatalf("mock: actor method must return exactly one value")
	}
	return results[0].Interface()
}

// ExpectAbort runs fn and asserts it aborts with exactly the given exit
// code, mirroring the teacher's builtin_test-style ExpectAbort used
// throughout miner_test.go.
func ExpectAbort(t testing.TB, expected exitcode.ExitCode, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected abort with code %v, but call completed normally", expected)
		}
		rerr, ok := r.(*exitcode.RuntimeError)
		if !ok {
			panic(r)
		}
		if rerr.Code != expected {
			t.Fatalf("expected abort code %v, got %v (%s)", expected, rerr.Code, rerr.Message)
		}
	}()
	fn()
}

// CheckActorExports smoke-tests that an actor's Exports table is shaped
// like a dispatch table: every non-nil entry is a two-argument,
// single-return function, mirroring the teacher's mock.CheckActorExports
// used as every actor package's TestExports.
func CheckActorExports(t testing.TB, actor interface{ Exports() []interface{} }) {
	t.Helper()
	exports := actor.Exports()
	if len(exports) == 0 {
		t.Fatalf("actor exports no methods")
	}
	for i, m := range exports {
		if m == nil {
			continue
		}
		mt := reflect.TypeOf(m)
		if mt.Kind() != reflect.Func {
			t.Fatalf("export %d is not a function", i)
		}
		if mt.NumIn() != 2 {
			t.Fatalf("export %d must take exactly (Runtime, params)", i)
		}
		if mt.NumOut() != 1 {
			t.Fatalf("export %d must return exactly one value", i)
		}
	}
}
