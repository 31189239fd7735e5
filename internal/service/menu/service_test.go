package menu_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kasaops/kasa-backend/internal/model/ussd"
	"github.com/kasaops/kasa-backend/internal/service/alert"
	"github.com/kasaops/kasa-backend/internal/service/location"
	"github.com/kasaops/kasa-backend/internal/service/menu"
	"github.com/kasaops/kasa-backend/internal/service/registry"
	"github.com/kasaops/kasa-backend/internal/service/reportlog"
	"github.com/kasaops/kasa-backend/internal/service/session"
	"github.com/kasaops/kasa-backend/internal/service/sms"
)

type capturedSend struct {
	Message    string
	Recipients []string
}

// captureGateway records sends; optionally fails every call.
type captureGateway struct {
	mu    sync.Mutex
	sends []capturedSend
	fail  bool
}

func (g *captureGateway) Send(_ context.Context, message string, recipients []string) ([]sms.Recipient, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.fail {
		return nil, errors.New("gateway unreachable")
	}

	g.sends = append(g.sends, capturedSend{Message: message, Recipients: recipients})
	outcomes := make([]sms.Recipient, 0, len(recipients))
	for _, number := range recipients {
		outcomes = append(outcomes, sms.Recipient{Number: number, Status: sms.StatusDelivered})
	}
	return outcomes, nil
}

func (g *captureGateway) sent() []capturedSend {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]capturedSend(nil), g.sends...)
}

type fixture struct {
	svc      *menu.Service
	registry *registry.Service
	reports  *reportlog.Service
	sessions *session.MemoryStore
	gateway  *captureGateway
}

func newFixture() *fixture {
	gw := &captureGateway{}
	reg := registry.NewService()
	reports := reportlog.NewService()
	sessions := session.NewMemoryStore()
	alerts := alert.NewService(reg, gw)
	svc := menu.NewService(sessions, reg, reports, alerts, location.NewPrefixResolver(location.Seed()))
	return &fixture{svc: svc, registry: reg, reports: reports, sessions: sessions, gateway: gw}
}

func (f *fixture) sessionExists(t *testing.T, sessionID string) bool {
	t.Helper()
	_, ok, err := f.sessions.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("session get err: %v", err)
	}
	return ok
}

func TestRootMenuEmptyAndSentinelEquivalent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	empty := f.svc.Handle(ctx, "s-root", "", "+254712345678")
	sentinel := f.svc.Handle(ctx, "s-root", "0", "+254712345678")

	if empty != sentinel {
		t.Fatalf("empty text and sentinel diverge:\n%q\n%q", empty, sentinel)
	}
	if !strings.HasPrefix(empty, "CON ") {
		t.Fatalf("root menu must continue the session, got %q", empty)
	}
	if !strings.Contains(empty, "1. Send Emergency Alert") {
		t.Fatalf("root menu missing first option: %q", empty)
	}
}

func TestInvalidTopLevelOption(t *testing.T) {
	f := newFixture()

	reply := f.svc.Handle(context.Background(), "s-bad", "9", "+254712345678")
	if reply != "END Invalid option. Please try again." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestDepthInvariantNonEmergencyBranchFallsThrough(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Depth 2 and 3 continuations under non-emergency digits must hit the
	// generic fallback, never emergency logic.
	for _, text := range []string{"2*1", "3*1", "9*1", "2*1*1", "3*4*1", "1*1*1*1"} {
		reply := f.svc.Handle(ctx, "s-depth", text, "+254700000001")
		if !strings.HasPrefix(reply, "END ") {
			t.Fatalf("text %q: expected terminal reply, got %q", text, reply)
		}
		if strings.Contains(reply, "Reference:") {
			t.Fatalf("text %q leaked into emergency submission: %q", text, reply)
		}
		if f.sessionExists(t, "s-depth") {
			t.Fatalf("text %q left session state behind", text)
		}
	}

	if got := f.reports.Count(ctx); got != 0 {
		t.Fatalf("fallback paths created %d reports", got)
	}
}

func TestEmergencyScenarioEndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	phone := "+254712345678"

	step1 := f.svc.Handle(ctx, "s1", "", phone)
	if !strings.HasPrefix(step1, "CON ") || !strings.Contains(step1, "1. Send Emergency Alert") {
		t.Fatalf("step 1: %q", step1)
	}

	step2 := f.svc.Handle(ctx, "s1", "1", phone)
	if !strings.Contains(step2, "Fire Emergency") || !strings.Contains(step2, "Natural Disaster") {
		t.Fatalf("step 2 missing type enumeration: %q", step2)
	}

	step3 := f.svc.Handle(ctx, "s1", "1*1", phone)
	if !strings.HasPrefix(step3, "CON ") || !strings.Contains(step3, "Confirm sending Fire Emergency?") {
		t.Fatalf("step 3: %q", step3)
	}

	step4 := f.svc.Handle(ctx, "s1", "1*1*1", phone)
	if !strings.HasPrefix(step4, "END ") {
		t.Fatalf("step 4 must terminate: %q", step4)
	}
	if !strings.Contains(step4, "Reference: EMR-") {
		t.Fatalf("step 4 missing reference id: %q", step4)
	}
	if !strings.Contains(step4, "Westlands") {
		t.Fatalf("step 4 missing resolved location: %q", step4)
	}

	reports := f.reports.List(ctx)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].Type != "Fire Emergency" || reports[0].Phone != phone {
		t.Fatalf("unexpected report: %+v", reports[0])
	}
	if reports[0].ReferenceID != reportlog.ReferenceID("s1") {
		t.Fatalf("reference id not derived from session id: %s", reports[0].ReferenceID)
	}
}

func TestEmergencyInvalidType(t *testing.T) {
	f := newFixture()

	reply := f.svc.Handle(context.Background(), "s-type", "1*9", "+254712345678")
	if reply != "END Invalid emergency type." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestEmergencyTypeBackToRoot(t *testing.T) {
	f := newFixture()

	reply := f.svc.Handle(context.Background(), "s-back", "1*0", "+254712345678")
	if !strings.Contains(reply, "Welcome to KASA") {
		t.Fatalf("expected root menu, got %q", reply)
	}
}

func TestEmergencyCancelAndRootFromConfirmation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cancel := f.svc.Handle(ctx, "s-c1", "1*2*2", "+254712345678")
	if cancel != "END Alert cancelled. Stay safe!" {
		t.Fatalf("cancel reply: %q", cancel)
	}

	root := f.svc.Handle(ctx, "s-c2", "1*2*0", "+254712345678")
	if !strings.HasPrefix(root, "CON ") || !strings.Contains(root, "Welcome to KASA") {
		t.Fatalf("root reply: %q", root)
	}

	if got := f.reports.Count(ctx); got != 0 {
		t.Fatalf("cancelled paths created %d reports", got)
	}
}

func TestEmergencyFanOutExcludesReporterCaseInsensitive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.registry.Register(ctx, "+254712000001", "Amina", "westlands"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.registry.Register(ctx, "+254712000002", "Brian", "Westlands"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.registry.Register(ctx, "+254720000003", "Carol", "Kilimani"); err != nil {
		t.Fatalf("register: %v", err)
	}

	reply := f.svc.Handle(ctx, "s-fan", "1*1*1", "+254712000001")
	if !strings.Contains(reply, "1 local users notified") {
		t.Fatalf("expected exactly 1 notified, got %q", reply)
	}

	sends := f.gateway.sent()
	if len(sends) != 1 {
		t.Fatalf("expected one fan-out send, got %d", len(sends))
	}
	if len(sends[0].Recipients) != 1 || sends[0].Recipients[0] != "+254712000002" {
		t.Fatalf("unexpected recipients: %v", sends[0].Recipients)
	}
	if !strings.Contains(sends[0].Message, "Fire Emergency") || !strings.Contains(sends[0].Message, "Amina") {
		t.Fatalf("unexpected fan-out message: %q", sends[0].Message)
	}
}

func TestEmergencyFanOutFailureDoesNotAbortReport(t *testing.T) {
	f := newFixture()
	f.gateway.fail = true
	ctx := context.Background()

	if _, err := f.registry.Register(ctx, "+254712000001", "Amina", "Westlands"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.registry.Register(ctx, "+254712000002", "Brian", "Westlands"); err != nil {
		t.Fatalf("register: %v", err)
	}

	reply := f.svc.Handle(ctx, "s-fail", "1*2*1", "+254712000001")
	if !strings.HasPrefix(reply, "END ") || !strings.Contains(reply, "Reference: EMR-") {
		t.Fatalf("acknowledgement lost on gateway failure: %q", reply)
	}
	if strings.Contains(reply, "local users notified") {
		t.Fatalf("failed fan-out must not claim deliveries: %q", reply)
	}
	if got := f.reports.Count(ctx); got != 1 {
		t.Fatalf("expected report despite gateway failure, got %d", got)
	}
}

func TestUnregisteredReporterSkipsFanOut(t *testing.T) {
	f := newFixture()

	reply := f.svc.Handle(context.Background(), "s-anon", "1*3*1", "+254799999999")
	if !strings.HasPrefix(reply, "END ") {
		t.Fatalf("expected terminal reply: %q", reply)
	}
	if strings.Contains(reply, "local users notified") {
		t.Fatalf("unregistered reporter must not trigger fan-out text: %q", reply)
	}
	if len(f.gateway.sent()) != 0 {
		t.Fatal("unexpected gateway send for unregistered reporter")
	}
}

func TestRegistrationWizardDeterminism(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	phone := "+254733111222"

	start := f.svc.Handle(ctx, "s-reg", "2", phone)
	if start != "CON Enter your full name:" {
		t.Fatalf("wizard entry: %q", start)
	}

	name := f.svc.Handle(ctx, "s-reg", "2*Alice", phone)
	if !strings.Contains(name, "Hello Alice!") {
		t.Fatalf("name step: %q", name)
	}

	loc := f.svc.Handle(ctx, "s-reg", "2*Alice*Nairobi", phone)
	if !strings.Contains(loc, "Name: Alice") || !strings.Contains(loc, "Location: Nairobi") {
		t.Fatalf("confirmation summary: %q", loc)
	}

	done := f.svc.Handle(ctx, "s-reg", "2*Alice*Nairobi*1", phone)
	if !strings.HasPrefix(done, "END ") || !strings.Contains(done, "Alice") || !strings.Contains(done, "Nairobi") {
		t.Fatalf("success screen: %q", done)
	}

	u, ok := f.registry.FindByPhone(ctx, phone)
	if !ok {
		t.Fatal("user not registered")
	}
	if u.Name != "Alice" || u.Location != "Nairobi" {
		t.Fatalf("unexpected record: %+v", u)
	}
	if f.sessionExists(t, "s-reg") {
		t.Fatal("session not cleared after completed wizard")
	}
}

func TestRegistrationBlankInputReprompts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	phone := "+254733111333"

	f.svc.Handle(ctx, "s-blank", "2", phone)

	reprompt := f.svc.Handle(ctx, "s-blank", "2*", phone)
	if reprompt != "CON Please enter your full name:" {
		t.Fatalf("blank name: %q", reprompt)
	}

	// A blank input must not advance the step.
	next := f.svc.Handle(ctx, "s-blank", "2**Bob", phone)
	if !strings.Contains(next, "Hello Bob!") {
		t.Fatalf("name after reprompt: %q", next)
	}

	blankLoc := f.svc.Handle(ctx, "s-blank", "2**Bob*  ", phone)
	if blankLoc != "CON Please enter your location/area:" {
		t.Fatalf("blank location: %q", blankLoc)
	}
}

func TestRegistrationDuplicateAtEntry(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	phone := "+254733111444"

	if _, err := f.registry.Register(ctx, phone, "Existing", "Eastlands"); err != nil {
		t.Fatalf("register: %v", err)
	}

	reply := f.svc.Handle(ctx, "s-dup", "2", phone)
	if !strings.HasPrefix(reply, "END ") || !strings.Contains(reply, "already registered") {
		t.Fatalf("duplicate entry: %q", reply)
	}
	if !strings.Contains(reply, "Existing") || !strings.Contains(reply, "Eastlands") {
		t.Fatalf("existing record not shown: %q", reply)
	}
	if f.sessionExists(t, "s-dup") {
		t.Fatal("wizard must never start for a registered phone")
	}
}

func TestRegistrationCommitRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	phone := "+254733111555"

	f.svc.Handle(ctx, "s-race", "2", phone)
	f.svc.Handle(ctx, "s-race", "2*Alice", phone)
	f.svc.Handle(ctx, "s-race", "2*Alice*Nairobi", phone)

	// Another channel registers the phone between entry and commit.
	if _, err := f.registry.Register(ctx, phone, "Winner", "Kilimani"); err != nil {
		t.Fatalf("concurrent register: %v", err)
	}

	reply := f.svc.Handle(ctx, "s-race", "2*Alice*Nairobi*1", phone)
	if !strings.Contains(reply, "already registered") || !strings.Contains(reply, "Winner") {
		t.Fatalf("commit race reply: %q", reply)
	}

	u, _ := f.registry.FindByPhone(ctx, phone)
	if u.Name != "Winner" {
		t.Fatalf("commit race overwrote the existing record: %+v", u)
	}
	if f.sessionExists(t, "s-race") {
		t.Fatal("session not cleared after conflict")
	}
}

func TestRegistrationConfirmationUnknownInputRedisplays(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	phone := "+254733111666"

	f.svc.Handle(ctx, "s-confirm", "2", phone)
	f.svc.Handle(ctx, "s-confirm", "2*Alice", phone)
	f.svc.Handle(ctx, "s-confirm", "2*Alice*Nairobi", phone)

	again := f.svc.Handle(ctx, "s-confirm", "2*Alice*Nairobi*7", phone)
	if !strings.Contains(again, "Confirm registration:") {
		t.Fatalf("unknown input must re-display confirmation: %q", again)
	}
	if _, ok := f.registry.FindByPhone(ctx, phone); ok {
		t.Fatal("unknown input must not commit")
	}

	done := f.svc.Handle(ctx, "s-confirm", "2*Alice*Nairobi*1", phone)
	if !strings.HasPrefix(done, "END ") || !strings.Contains(done, "successful") {
		t.Fatalf("commit after redisplay: %q", done)
	}
}

func TestRegistrationCancelAndRootAbort(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.svc.Handle(ctx, "s-cancel", "2", "+254733111777")
	f.svc.Handle(ctx, "s-cancel", "2*Alice", "+254733111777")
	f.svc.Handle(ctx, "s-cancel", "2*Alice*Nairobi", "+254733111777")
	cancel := f.svc.Handle(ctx, "s-cancel", "2*Alice*Nairobi*2", "+254733111777")
	if cancel != "END Registration cancelled." {
		t.Fatalf("cancel: %q", cancel)
	}
	if f.sessionExists(t, "s-cancel") {
		t.Fatal("session not cleared after cancel")
	}

	f.svc.Handle(ctx, "s-abort", "2", "+254733111888")
	f.svc.Handle(ctx, "s-abort", "2*Bob", "+254733111888")
	f.svc.Handle(ctx, "s-abort", "2*Bob*Nakuru", "+254733111888")
	abort := f.svc.Handle(ctx, "s-abort", "2*Bob*Nakuru*0", "+254733111888")
	if !strings.HasPrefix(abort, "CON ") || !strings.Contains(abort, "Welcome to KASA") {
		t.Fatalf("root abort: %q", abort)
	}
	if f.sessionExists(t, "s-abort") {
		t.Fatal("session not cleared on root abort")
	}
	if _, ok := f.registry.FindByPhone(ctx, "+254733111888"); ok {
		t.Fatal("aborted wizard must not register")
	}
}

func TestConfirmationWithoutCapturedDataIsSystemError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Corrupt state: confirmation reached with no name/location captured.
	err := f.sessions.Set(ctx, "s-corrupt", ussd.SessionState{
		Flow: ussd.FlowRegistration,
		Step: ussd.StepConfirmation,
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	reply := f.svc.Handle(ctx, "s-corrupt", "1", "+254733999000")
	if reply != "END System error. Please try again later." {
		t.Fatalf("corrupt state reply: %q", reply)
	}
	if f.sessionExists(t, "s-corrupt") {
		t.Fatal("corrupt session must be force-cleared")
	}
}

func TestUnknownWizardStepEndsSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.sessions.Set(ctx, "s-step", ussd.SessionState{
		Flow: ussd.FlowRegistration,
		Step: ussd.RegistrationStep("bogus"),
	})
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}

	reply := f.svc.Handle(ctx, "s-step", "anything", "+254733999111")
	if reply != "END Registration error. Please try again." {
		t.Fatalf("unknown step reply: %q", reply)
	}
	if f.sessionExists(t, "s-step") {
		t.Fatal("session must be cleared on unknown step")
	}
}

func TestTerminalResponsesLeaveNoSessionMemory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	phone := "+254712345678"

	f.svc.Handle(ctx, "s-idem", "1*1*1", phone)

	// A fresh dial on the same session id starts at the root.
	root := f.svc.Handle(ctx, "s-idem", "", phone)
	if !strings.HasPrefix(root, "CON ") || !strings.Contains(root, "Welcome to KASA") {
		t.Fatalf("post-terminal root: %q", root)
	}

	// Replaying the terminal text must yield a well-formed reply, never a
	// resumed flow or an error.
	replay := f.svc.Handle(ctx, "s-idem", "1*1*1", phone)
	if !strings.HasPrefix(replay, "END ") {
		t.Fatalf("replay must be terminal: %q", replay)
	}
}

func TestStatusAndHelpScreens(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.registry.Register(ctx, "+254711000001", "Amina", "CBD"); err != nil {
		t.Fatalf("register: %v", err)
	}

	status := f.svc.Handle(ctx, "s-status", "3", "+254711000001")
	if !strings.HasPrefix(status, "END ") || !strings.Contains(status, "Registered Users: 1") {
		t.Fatalf("status screen: %q", status)
	}

	help := f.svc.Handle(ctx, "s-help", "4", "+254711000001")
	if !strings.HasPrefix(help, "CON ") || !strings.Contains(help, "KASA Help") {
		t.Fatalf("help screen: %q", help)
	}

	back := f.svc.Handle(ctx, "s-help", "4*0", "+254711000001")
	if !strings.Contains(back, "Welcome to KASA") {
		t.Fatalf("help back: %q", back)
	}
}

func TestConcurrentSessionsStayIndependent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sessionID := "s-par-" + string(rune('a'+n))
			phone := "+2547330002" + string(rune('0'+n%10))
			f.svc.Handle(ctx, sessionID, "2", phone)
			f.svc.Handle(ctx, sessionID, "2*User", phone)
			f.svc.Handle(ctx, sessionID, "2*User*Area", phone)
		}(i)
	}
	wg.Wait()

	// Every session should still be parked at its own confirmation step.
	for i := 0; i < 16; i++ {
		sessionID := "s-par-" + string(rune('a'+i))
		state, ok, err := f.sessions.Get(ctx, sessionID)
		if err != nil || !ok {
			t.Fatalf("session %s missing: %v", sessionID, err)
		}
		if state.Step != ussd.StepConfirmation || state.Name != "User" {
			t.Fatalf("session %s corrupted: %+v", sessionID, state)
		}
	}
}
