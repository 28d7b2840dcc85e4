package wizard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/goleak"

	"github.com/shaiso/metamigrate/internal/domain"
	"github.com/shaiso/metamigrate/internal/notify"
	"github.com/shaiso/metamigrate/internal/poll"
	"github.com/shaiso/metamigrate/internal/remote"
	"github.com/shaiso/metamigrate/internal/remote/remotetest"
	"github.com/shaiso/metamigrate/internal/telemetry"
)

// --- helpers ---

type recordingSink struct {
	mu      sync.Mutex
	records []domain.DeploymentRecord
	err     error
}

func (s *recordingSink) PublishDeploymentCompleted(_ context.Context, record domain.DeploymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return s.err
}

func (s *recordingSink) all() []domain.DeploymentRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.DeploymentRecord(nil), s.records...)
}

var testPolicy = poll.Policy{
	Interval:    time.Millisecond,
	MaxAttempts: 5,
	Timeout:     5 * time.Second,
}

func newFake() *remotetest.Fake {
	return &remotetest.Fake{
		Environments: []domain.Environment{
			{ID: "OrgA", Label: "Org A"},
			{ID: "OrgB", Label: "Org B"},
			{ID: "OrgC", Label: "Org C"},
		},
		Types: map[string][]string{
			"OrgA": {"CustomObject", "Flow"},
		},
		Descriptors: map[string][]domain.MetadataDescriptor{
			"Flow": {
				{FullName: "MyFlow", Type: "Flow"},
				{FullName: "OtherFlow", Type: "Flow"},
			},
			"CustomObject": {
				{FullName: "Account__c", Type: "CustomObject"},
			},
		},
		SubmitJobID: "job123",
	}
}

func newTestWizard(t *testing.T, fake *remotetest.Fake) (*Wizard, *notify.Recorder, *recordingSink) {
	t.Helper()

	rec := notify.NewRecorder(0)
	sink := &recordingSink{}
	w := New(Config{
		SessionID: uuid.New(),
		Gateway:   fake,
		Notifier:  rec,
		Policy:    testPolicy,
		Events:    sink,
	})
	t.Cleanup(w.Close)
	return w, rec, sink
}

// selectOrgs загружает окружения и выбирает OrgA → OrgB.
func selectOrgs(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()

	if err := w.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := w.SelectSource(ctx, "OrgA"); err != nil {
		t.Fatalf("SelectSource failed: %v", err)
	}
	if err := w.SelectTarget(ctx, "OrgB"); err != nil {
		t.Fatalf("SelectTarget failed: %v", err)
	}
}

// advanceToReview доводит визард до шага ReviewAndDeploy с выбранным MyFlow.
func advanceToReview(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()

	selectOrgs(t, w)
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next from step 1 failed: %v", err)
	}
	if err := w.SelectTypes(ctx, []string{"Flow"}); err != nil {
		t.Fatalf("SelectTypes failed: %v", err)
	}
	if _, err := w.FetchDescriptors(ctx); err != nil {
		t.Fatalf("FetchDescriptors failed: %v", err)
	}
	if err := w.SelectRows(ctx, []domain.MetadataDescriptor{{Type: "Flow", FullName: "MyFlow"}}); err != nil {
		t.Fatalf("SelectRows failed: %v", err)
	}
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next from step 2 failed: %v", err)
	}
	if got := w.Step(); got != domain.StepReviewAndDeploy {
		t.Fatalf("expected step %s, got %s", domain.StepReviewAndDeploy, got)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func lastTitle(t *testing.T, rec *notify.Recorder) string {
	t.Helper()
	n, ok := rec.Last()
	if !ok {
		t.Fatal("expected a notification")
	}
	return n.Title
}

// --- tests ---

func TestWizard_EndToEnd(t *testing.T) {
	fake := newFake()
	fake.Tokens = map[string]domain.TokenState{
		"OrgB": {Kind: domain.TokenPending, JobID: "auth-1"},
	}
	fake.Statuses = map[string][]domain.JobStatus{
		"auth-1": {{Done: false}, {Done: true, Success: true, Status: "Succeeded"}},
		"job123": {{Done: false, Status: "InProgress"}, {Done: false, Status: "InProgress"}, {Done: true, Success: true, Status: "Succeeded"}},
	}
	w, rec, sink := newTestWizard(t, fake)
	ctx := context.Background()

	selectOrgs(t, w)

	targets := w.AvailableTargets()
	for _, env := range targets {
		if env.ID == "OrgA" {
			t.Error("source must not be offered as target")
		}
	}
	if len(targets) != 2 {
		t.Errorf("expected 2 targets, got %d", len(targets))
	}

	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	st := w.State()
	if st.Step != domain.StepSelectMetadata {
		t.Fatalf("expected step %s, got %s", domain.StepSelectMetadata, st.Step)
	}
	if diff := cmp.Diff([]string{"CustomObject", "Flow"}, st.TypeOptions); diff != "" {
		t.Errorf("type options mismatch (-want +got):\n%s", diff)
	}

	if err := w.SelectTypes(ctx, []string{"Flow"}); err != nil {
		t.Fatalf("SelectTypes failed: %v", err)
	}
	rows, err := w.FetchDescriptors(ctx)
	if err != nil {
		t.Fatalf("FetchDescriptors failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if err := w.SelectRows(ctx, rows[:1]); err != nil {
		t.Fatalf("SelectRows failed: %v", err)
	}
	if !w.CanAdvance() {
		t.Fatal("expected CanAdvance with a selected row")
	}
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	record, err := w.Deploy(ctx)
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	if !record.Success || record.JobID != "job123" || record.Status != "Succeeded" {
		t.Errorf("unexpected record: %+v", record)
	}

	if got := fake.StatusCallCount("job123"); got != 3 {
		t.Errorf("expected 3 status polls, got %d", got)
	}
	if got := fake.StatusCallCount("auth-1"); got != 2 {
		t.Errorf("expected 2 auth polls, got %d", got)
	}

	want := domain.SelectionSet{"Flow": {"MyFlow"}}
	if diff := cmp.Diff(want, fake.Submitted[0]); diff != "" {
		t.Errorf("submitted selection mismatch (-want +got):\n%s", diff)
	}

	if title := lastTitle(t, rec); title != TitleSuccess {
		t.Errorf("expected %q notification, got %q", TitleSuccess, title)
	}

	st = w.State()
	if st.Step != domain.StepReviewAndDeploy {
		t.Errorf("step must not change after deploy, got %s", st.Step)
	}
	if diff := cmp.Diff(want, st.Selection); diff != "" {
		t.Errorf("selection must not change after deploy (-want +got):\n%s", diff)
	}
	if st.LastDeployment == nil || st.LastDeployment.ID != record.ID {
		t.Error("expected last deployment in state")
	}

	events := sink.all()
	if len(events) != 1 || events[0].ID != record.ID {
		t.Errorf("expected one deployment event, got %d", len(events))
	}
}

func TestWizard_NextRequiresOrgs(t *testing.T) {
	fake := newFake()
	w, rec, _ := newTestWizard(t, fake)
	ctx := context.Background()

	if err := w.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if w.CanAdvance() {
		t.Error("CanAdvance must be false without orgs")
	}

	err := w.Next(ctx)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if w.Step() != domain.StepSelectOrgs {
		t.Errorf("step must stay %s", domain.StepSelectOrgs)
	}
	if title := lastTitle(t, rec); title != TitleValidation {
		t.Errorf("expected %q notification, got %q", TitleValidation, title)
	}
	if len(fake.AuthCalls) != 0 {
		t.Error("no remote call expected on failed guard")
	}
}

func TestWizard_SelectTargetSameAsSource(t *testing.T) {
	w, _, _ := newTestWizard(t, newFake())
	ctx := context.Background()

	selectOrgs(t, w)

	err := w.SelectTarget(ctx, "OrgA")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := w.State().Target; got != "OrgB" {
		t.Errorf("target must stay OrgB, got %s", got)
	}

	if err := w.SelectTarget(ctx, "Unknown"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown target, got %v", err)
	}
}

func TestWizard_SelectOrgsRejectsPairWithoutChanges(t *testing.T) {
	w, _, _ := newTestWizard(t, newFake())
	ctx := context.Background()

	advanceToReview(t, w)
	before := w.State()

	pairs := []struct {
		source, target string
		field          string
	}{
		{"OrgC", "OrgC", "target"},
		{"OrgC", "Unknown", "target"},
		{"Unknown", "OrgB", "source"},
		{"", "OrgA", "target"},
	}

	for _, p := range pairs {
		err := w.SelectOrgs(ctx, p.source, p.target)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("SelectOrgs(%q, %q): expected ValidationError, got %v", p.source, p.target, err)
		}
		if verr.Field != p.field {
			t.Errorf("SelectOrgs(%q, %q): expected field %q, got %q", p.source, p.target, p.field, verr.Field)
		}
		if diff := cmp.Diff(before, w.State()); diff != "" {
			t.Errorf("SelectOrgs(%q, %q) changed state (-before +after):\n%s", p.source, p.target, diff)
		}
	}
}

func TestWizard_SelectOrgsAppliesPair(t *testing.T) {
	w, _, _ := newTestWizard(t, newFake())
	ctx := context.Background()

	advanceToReview(t, w)

	if err := w.SelectOrgs(ctx, "", "OrgC"); err != nil {
		t.Fatalf("SelectOrgs failed: %v", err)
	}
	st := w.State()
	if st.Target != "OrgC" || st.Step != domain.StepReviewAndDeploy || st.Selection.IsEmpty() {
		t.Errorf("target change must keep the catalog: %+v", st)
	}

	if err := w.SelectOrgs(ctx, "OrgC", "OrgA"); err != nil {
		t.Fatalf("SelectOrgs failed: %v", err)
	}
	st = w.State()
	if st.Source != "OrgC" || st.Target != "OrgA" {
		t.Errorf("expected OrgC → OrgA, got %s → %s", st.Source, st.Target)
	}
	if st.Step != domain.StepSelectOrgs || !st.Selection.IsEmpty() {
		t.Errorf("source change must reset the catalog: %+v", st)
	}
}

func TestWizard_ChangingSourceClearsCatalog(t *testing.T) {
	w, _, _ := newTestWizard(t, newFake())
	ctx := context.Background()

	advanceToReview(t, w)

	if err := w.SelectSource(ctx, "OrgB"); err != nil {
		t.Fatalf("SelectSource failed: %v", err)
	}

	st := w.State()
	if st.Step != domain.StepSelectOrgs {
		t.Errorf("expected step %s after source change, got %s", domain.StepSelectOrgs, st.Step)
	}
	if st.Target != "" {
		t.Errorf("target equal to new source must be cleared, got %q", st.Target)
	}
	if len(st.TypeOptions) != 0 || len(st.SelectedTypes) != 0 || len(st.Descriptors) != 0 {
		t.Errorf("catalog must be cleared: %+v", st)
	}
	if !st.Selection.IsEmpty() {
		t.Errorf("selection must be cleared, got %v", st.Selection)
	}
}

func TestWizard_SameSourceKeepsCatalog(t *testing.T) {
	w, _, _ := newTestWizard(t, newFake())
	ctx := context.Background()

	advanceToReview(t, w)

	if err := w.SelectSource(ctx, "OrgA"); err != nil {
		t.Fatalf("SelectSource failed: %v", err)
	}
	if w.State().Selection.IsEmpty() {
		t.Error("reselecting the same source must not clear the selection")
	}
}

func TestWizard_ExpiredTokenIsNotRetried(t *testing.T) {
	fake := newFake()
	fake.Tokens = map[string]domain.TokenState{"OrgA": {Kind: domain.TokenExpired}}
	w, rec, _ := newTestWizard(t, fake)
	ctx := context.Background()

	selectOrgs(t, w)

	err := w.Next(ctx)
	if !errors.Is(err, domain.ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if len(fake.AuthCalls) != 1 {
		t.Errorf("expected exactly 1 auth call, got %d", len(fake.AuthCalls))
	}
	if len(fake.TypesCalls) != 0 {
		t.Error("types must not be listed with an expired token")
	}
	if w.Step() != domain.StepSelectOrgs {
		t.Error("step must not change")
	}
	if title := lastTitle(t, rec); title != TitleTokenExpired {
		t.Errorf("expected %q notification, got %q", TitleTokenExpired, title)
	}
}

func TestWizard_AuthorizationJobFails(t *testing.T) {
	fake := newFake()
	fake.Tokens = map[string]domain.TokenState{"OrgA": {Kind: domain.TokenPending, JobID: "auth-1"}}
	fake.Statuses = map[string][]domain.JobStatus{
		"auth-1": {{Done: true, Success: false, Status: "Denied"}},
	}
	w, rec, _ := newTestWizard(t, fake)

	selectOrgs(t, w)

	err := w.Next(context.Background())
	if !errors.Is(err, domain.ErrAuthorizationFailed) {
		t.Fatalf("expected ErrAuthorizationFailed, got %v", err)
	}
	if errors.Is(err, domain.ErrDeploymentFailed) {
		t.Errorf("authorization failure must not look like a failed deployment: %v", err)
	}
	if w.Step() != domain.StepSelectOrgs {
		t.Error("step must not change")
	}
	if title := lastTitle(t, rec); title != TitleAuthorization {
		t.Errorf("expected %q notification, got %q", TitleAuthorization, title)
	}
}

func TestWizard_ListTypesFailureKeepsStep(t *testing.T) {
	fake := newFake()
	fake.TypesErr = fmt.Errorf("%w: org unreachable", domain.ErrFetch)
	w, rec, _ := newTestWizard(t, fake)

	selectOrgs(t, w)

	err := w.Next(context.Background())
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if w.Step() != domain.StepSelectOrgs {
		t.Error("step must not change")
	}
	n, _ := rec.Last()
	if n.Title != TitleError || n.Message != "remote call failed: org unreachable" {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestWizard_FetchDescriptorsFailureKeepsRows(t *testing.T) {
	fake := newFake()
	w, _, _ := newTestWizard(t, fake)
	ctx := context.Background()

	advanceToReview(t, w)
	if err := w.Previous(ctx); err != nil {
		t.Fatalf("Previous failed: %v", err)
	}

	fake.DescriptorsErr = fmt.Errorf("%w: boom", domain.ErrFetch)
	if _, err := w.FetchDescriptors(ctx); !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}

	st := w.State()
	if len(st.Descriptors) != 2 {
		t.Errorf("previous rows must be kept, got %d", len(st.Descriptors))
	}
	if st.Selection.IsEmpty() {
		t.Error("selection must be kept on failure")
	}
}

func TestWizard_FetchDescriptorsRequiresTypes(t *testing.T) {
	fake := newFake()
	w, _, _ := newTestWizard(t, fake)
	ctx := context.Background()

	selectOrgs(t, w)
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if _, err := w.FetchDescriptors(ctx); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(fake.DescriptorCalls) != 0 {
		t.Error("no remote call expected without types")
	}
}

func TestWizard_SelectTypesUnknown(t *testing.T) {
	w, _, _ := newTestWizard(t, newFake())
	ctx := context.Background()

	selectOrgs(t, w)
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	if err := w.SelectTypes(ctx, []string{"ApexClass"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := w.SelectTypes(ctx, []string{"Flow", "Flow", "CustomObject"}); err != nil {
		t.Fatalf("SelectTypes failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Flow", "CustomObject"}, w.State().SelectedTypes); diff != "" {
		t.Errorf("selected types mismatch (-want +got):\n%s", diff)
	}
}

func TestWizard_SelectRowsRebuildsSelection(t *testing.T) {
	w, _, _ := newTestWizard(t, newFake())
	ctx := context.Background()

	selectOrgs(t, w)
	if err := w.Next(ctx); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := w.SelectTypes(ctx, []string{"CustomObject", "Flow"}); err != nil {
		t.Fatalf("SelectTypes failed: %v", err)
	}
	if _, err := w.FetchDescriptors(ctx); err != nil {
		t.Fatalf("FetchDescriptors failed: %v", err)
	}

	err := w.SelectRows(ctx, []domain.MetadataDescriptor{{Type: "Flow", FullName: "Missing"}})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	rows := []domain.MetadataDescriptor{
		{Type: "Flow", FullName: "MyFlow"},
		{Type: "CustomObject", FullName: "Account__c"},
		{Type: "Flow", FullName: "OtherFlow"},
		{Type: "Flow", FullName: "MyFlow"},
	}
	if err := w.SelectRows(ctx, rows); err != nil {
		t.Fatalf("SelectRows failed: %v", err)
	}
	want := domain.SelectionSet{
		"Flow":         {"MyFlow", "OtherFlow"},
		"CustomObject": {"Account__c"},
	}
	if diff := cmp.Diff(want, w.State().Selection); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}

	if err := w.SelectRows(ctx, nil); err != nil {
		t.Fatalf("SelectRows failed: %v", err)
	}
	if w.CanAdvance() {
		t.Error("CanAdvance must be false with empty selection")
	}
	if err := w.Next(ctx); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if got := w.Step(); got != domain.StepSelectMetadata {
		t.Errorf("step must stay %s, got %s", domain.StepSelectMetadata, got)
	}
}

func TestWizard_PreviousKeepsSelection(t *testing.T) {
	w, _, _ := newTestWizard(t, newFake())
	ctx := context.Background()

	advanceToReview(t, w)

	for _, want := range []domain.Step{domain.StepSelectMetadata, domain.StepSelectOrgs, domain.StepSelectOrgs} {
		if err := w.Previous(ctx); err != nil {
			t.Fatalf("Previous failed: %v", err)
		}
		if got := w.Step(); got != want {
			t.Errorf("expected step %s, got %s", want, got)
		}
	}

	st := w.State()
	if st.Source != "OrgA" || st.Target != "OrgB" || st.Selection.IsEmpty() {
		t.Errorf("selections must survive Previous: %+v", st)
	}
}

func TestWizard_NextOnLastStepIsNoop(t *testing.T) {
	fake := newFake()
	w, _, _ := newTestWizard(t, fake)

	advanceToReview(t, w)

	if err := w.Next(context.Background()); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if w.Step() != domain.StepReviewAndDeploy {
		t.Error("step must stay on the last step")
	}
	if fake.SubmitCount() != 0 {
		t.Error("Next must not deploy")
	}
}

func TestWizard_DeployRequiresReviewStep(t *testing.T) {
	fake := newFake()
	w, _, _ := newTestWizard(t, fake)

	selectOrgs(t, w)

	if _, err := w.Deploy(context.Background()); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if fake.SubmitCount() != 0 {
		t.Error("nothing must be submitted")
	}
}

func TestWizard_DeployFailed(t *testing.T) {
	fake := newFake()
	fake.Statuses = map[string][]domain.JobStatus{
		"job123": {{Done: true, Success: false, Status: "Failed"}},
	}
	w, rec, sink := newTestWizard(t, fake)

	advanceToReview(t, w)
	before := w.State().Selection

	record, err := w.Deploy(context.Background())
	if !errors.Is(err, domain.ErrDeploymentFailed) {
		t.Fatalf("expected ErrDeploymentFailed, got %v", err)
	}
	if record.Success || record.Status != "Failed" || record.Error == "" {
		t.Errorf("unexpected record: %+v", record)
	}

	n, _ := rec.Last()
	if n.Title != TitleDeploymentFailed {
		t.Errorf("expected %q, got %q", TitleDeploymentFailed, n.Title)
	}
	if n.Message != "Status: Failed. Please check the deployment details." {
		t.Errorf("unexpected message %q", n.Message)
	}
	if n.Severity != domain.SeverityError {
		t.Errorf("expected error severity, got %s", n.Severity)
	}

	st := w.State()
	if st.Step != domain.StepReviewAndDeploy {
		t.Error("step must not change on failure")
	}
	if diff := cmp.Diff(before, st.Selection); diff != "" {
		t.Errorf("selection must not change (-want +got):\n%s", diff)
	}
	if len(sink.all()) != 1 {
		t.Error("failed deployment must still be published")
	}
}

func TestWizard_DeploySubmitError(t *testing.T) {
	fake := newFake()
	fake.SubmitErr = fmt.Errorf("%w: INVALID_SELECTION: bad map", domain.ErrFetch)
	w, rec, _ := newTestWizard(t, fake)

	advanceToReview(t, w)

	record, err := w.Deploy(context.Background())
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if record.JobID != "" {
		t.Errorf("job id must be empty, got %q", record.JobID)
	}
	if len(fake.StatusCalls) != 0 {
		t.Error("nothing must be polled after a failed submit")
	}
	if title := lastTitle(t, rec); title != TitleError {
		t.Errorf("expected %q, got %q", TitleError, title)
	}
}

func TestWizard_DeployTimeout(t *testing.T) {
	fake := newFake()
	fake.Statuses = map[string][]domain.JobStatus{
		"job123": {{Done: false, Status: "InProgress"}},
	}
	w, rec, _ := newTestWizard(t, fake)

	advanceToReview(t, w)

	_, err := w.Deploy(context.Background())
	if !errors.Is(err, domain.ErrDeploymentTimeout) {
		t.Fatalf("expected ErrDeploymentTimeout, got %v", err)
	}
	if got := fake.StatusCallCount("job123"); got != testPolicy.MaxAttempts {
		t.Errorf("expected %d polls, got %d", testPolicy.MaxAttempts, got)
	}
	if title := lastTitle(t, rec); title != TitleDeploymentTimeout {
		t.Errorf("expected %q, got %q", TitleDeploymentTimeout, title)
	}
}

func TestWizard_DeployExpiredTarget(t *testing.T) {
	fake := newFake()
	fake.Tokens = map[string]domain.TokenState{"OrgB": {Kind: domain.TokenExpired}}
	w, _, _ := newTestWizard(t, fake)

	advanceToReview(t, w)

	if _, err := w.Deploy(context.Background()); !errors.Is(err, domain.ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if fake.SubmitCount() != 0 {
		t.Error("nothing must be submitted with an expired target token")
	}
}

func TestWizard_DeployTargetAuthorizationFails(t *testing.T) {
	fake := newFake()
	fake.Tokens = map[string]domain.TokenState{"OrgB": {Kind: domain.TokenPending, JobID: "auth-2"}}
	fake.Statuses = map[string][]domain.JobStatus{
		"auth-2": {{Done: true, Success: false, Status: "Denied"}},
	}
	w, rec, sink := newTestWizard(t, fake)

	advanceToReview(t, w)

	record, err := w.Deploy(context.Background())
	if !errors.Is(err, domain.ErrAuthorizationFailed) {
		t.Fatalf("expected ErrAuthorizationFailed, got %v", err)
	}
	if fake.SubmitCount() != 0 {
		t.Error("nothing must be submitted without target authorization")
	}
	if record.Success || record.Error == "" {
		t.Errorf("record must carry the failure: %+v", record)
	}
	if title := lastTitle(t, rec); title != TitleAuthorization {
		t.Errorf("expected %q, got %q", TitleAuthorization, title)
	}
	if got := len(sink.all()); got != 1 {
		t.Errorf("expected one published record, got %d", got)
	}
}

func TestDeploymentResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, telemetry.DeploymentResultSucceeded},
		{fmt.Errorf("%w: job 1", domain.ErrDeploymentFailed), telemetry.DeploymentResultFailed},
		{fmt.Errorf("%w: job 2", domain.ErrAuthorizationFailed), telemetry.DeploymentResultUnauthorized},
		{fmt.Errorf("%w: job 3", domain.ErrDeploymentTimeout), telemetry.DeploymentResultTimeout},
		{fmt.Errorf("%w: offline", domain.ErrFetch), telemetry.DeploymentResultError},
	}

	for _, tt := range tests {
		if got := deploymentResult(tt.err); got != tt.want {
			t.Errorf("deploymentResult(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWizard_BusyWhileLoading(t *testing.T) {
	fake := newFake()
	fake.Block = make(chan struct{})
	w, _, _ := newTestWizard(t, fake)
	ctx := context.Background()

	advanceToReview(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.Deploy(ctx)
		done <- err
	}()
	waitFor(t, w.Loading)

	if err := w.Next(ctx); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("Next: expected ErrBusy, got %v", err)
	}
	if err := w.Previous(ctx); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("Previous: expected ErrBusy, got %v", err)
	}
	if _, err := w.Deploy(ctx); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("Deploy: expected ErrBusy, got %v", err)
	}
	if err := w.SelectRows(ctx, nil); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("SelectRows: expected ErrBusy, got %v", err)
	}

	close(fake.Block)
	if err := <-done; err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	if fake.SubmitCount() != 1 {
		t.Errorf("expected exactly one submit, got %d", fake.SubmitCount())
	}
	if w.Loading() {
		t.Error("loading must be cleared")
	}
}

func TestWizard_CloseStopsPolling(t *testing.T) {
	defer goleak.VerifyNone(t)

	fake := newFake()
	fake.Block = make(chan struct{})
	rec := notify.NewRecorder(0)
	w := New(Config{Gateway: fake, Notifier: rec, Policy: testPolicy})
	ctx := context.Background()

	advanceToReview(t, w)
	before := len(rec.All())

	done := make(chan error, 1)
	go func() {
		_, err := w.Deploy(ctx)
		done <- err
	}()
	waitFor(t, w.Loading)

	w.Close()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := len(rec.All()); got != before {
		t.Errorf("no notification expected after Close, got %d new", got-before)
	}

	st := w.State()
	if !st.Closed || st.Loading {
		t.Errorf("unexpected state after Close: closed=%v loading=%v", st.Closed, st.Loading)
	}
	if st.LastDeployment != nil {
		t.Error("state must not change after Close")
	}

	if err := w.Next(ctx); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := w.SelectSource(ctx, "OrgB"); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	w.Close()
}

func TestWizard_CloseDuringAuthorizationOverHTTP(t *testing.T) {
	defer goleak.VerifyNone(t)

	polled := make(chan struct{}, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /environments", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[{"label":"Org A","value":"OrgA"},{"label":"Org B","value":"OrgB"}]}`)
	})
	mux.HandleFunc("POST /environments/OrgA/token", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":"job123"}`)
	})
	mux.HandleFunc("GET /deployments/job123/status", func(_ http.ResponseWriter, r *http.Request) {
		select {
		case polled <- struct{}{}:
		default:
		}
		<-r.Context().Done()
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	transport := &http.Transport{}
	defer transport.CloseIdleConnections()

	client := remote.NewClient(remote.Config{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Transport: transport},
	})
	rec := notify.NewRecorder(0)
	w := New(Config{Gateway: client, Notifier: rec, Policy: testPolicy})
	ctx := context.Background()

	if err := w.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := w.SelectOrgs(ctx, "OrgA", "OrgB"); err != nil {
		t.Fatalf("SelectOrgs failed: %v", err)
	}
	before := len(rec.All())

	done := make(chan error, 1)
	go func() {
		done <- w.Next(ctx)
	}()

	select {
	case <-polled:
	case <-time.After(2 * time.Second):
		t.Fatal("authorization job was not polled")
	}

	w.Close()

	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, domain.ErrFetch) {
		t.Errorf("transport error must stay a fetch error, got %v", err)
	}
	if got := rec.All()[before:]; len(got) != 0 {
		t.Errorf("no notification expected after Close, got %+v", got)
	}
	if got := w.Step(); got != domain.StepSelectOrgs {
		t.Errorf("step must stay %s, got %s", domain.StepSelectOrgs, got)
	}
}

func TestWizard_LoadFailureKeepsState(t *testing.T) {
	fake := newFake()
	w, rec, _ := newTestWizard(t, fake)
	ctx := context.Background()

	selectOrgs(t, w)

	fake.EnvironmentsErr = fmt.Errorf("%w: offline", domain.ErrFetch)
	if err := w.Load(ctx); !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}

	st := w.State()
	if len(st.Environments) != 3 || st.Source != "OrgA" || st.Target != "OrgB" {
		t.Errorf("state must be unchanged: %+v", st)
	}
	if title := lastTitle(t, rec); title != TitleError {
		t.Errorf("expected %q, got %q", TitleError, title)
	}
}

func TestWizard_LoadDropsVanishedSelection(t *testing.T) {
	fake := newFake()
	w, _, _ := newTestWizard(t, fake)
	ctx := context.Background()

	selectOrgs(t, w)

	fake.Environments = []domain.Environment{{ID: "OrgA"}, {ID: "OrgC"}}
	if err := w.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	st := w.State()
	if st.Source != "OrgA" {
		t.Errorf("source must be kept, got %q", st.Source)
	}
	if st.Target != "" {
		t.Errorf("vanished target must be cleared, got %q", st.Target)
	}
}
