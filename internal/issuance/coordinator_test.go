package issuance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SeakMengs/CertGate/internal/constant"
	"github.com/SeakMengs/CertGate/internal/model"
	"github.com/SeakMengs/CertGate/pkg/certgate"
	"go.uber.org/zap"
)

// In-memory store with the same conditional-update semantics as the SQL
// repository: eligibility check and increment under one lock.
type fakeStore struct {
	mu          sync.Mutex
	code        *model.AccessCode
	template    *model.Template
	issued      []*model.IssuedCertificate
	numbers     map[string]bool
	totalIssued int

	redeemErr error
	createErr error
}

func (s *fakeStore) AccessCodeByLink(ctx context.Context, uniqueLink string) (*model.AccessCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.code == nil || s.code.UniqueLink != uniqueLink {
		return nil, nil
	}

	snapshot := *s.code
	snapshot.Template = *s.template
	return &snapshot, nil
}

func (s *fakeStore) TemplateByID(ctx context.Context, templateId string) (*model.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.template == nil || s.template.ID != templateId {
		return nil, nil
	}

	snapshot := *s.template
	return &snapshot, nil
}

func (s *fakeStore) RedeemAccessCode(ctx context.Context, accessCodeId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.redeemErr != nil {
		return false, s.redeemErr
	}

	if s.code == nil || s.code.ID != accessCodeId || !s.code.IsActive {
		return false, nil
	}
	if s.code.MaxUses != nil && s.code.CurrentUses >= *s.code.MaxUses {
		return false, nil
	}

	s.code.CurrentUses++
	return true, nil
}

func (s *fakeStore) CertificateNumberTaken(ctx context.Context, number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.numbers[number] {
		return true, nil
	}
	if s.numbers == nil {
		s.numbers = make(map[string]bool)
	}
	s.numbers[number] = true
	return false, nil
}

func (s *fakeStore) CreateIssuedCertificate(ctx context.Context, cert *model.IssuedCertificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}

	for _, existing := range s.issued {
		if existing.CertificateNumber == cert.CertificateNumber {
			return fmt.Errorf("duplicate certificate number %s", cert.CertificateNumber)
		}
	}

	s.issued = append(s.issued, cert)
	return nil
}

func (s *fakeStore) IncrementTotalIssued(ctx context.Context, templateId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalIssued++
	return nil
}

func (s *fakeStore) currentUses() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code.CurrentUses
}

func (s *fakeStore) issuedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

type fakeRenderer struct {
	err   error
	delay time.Duration

	mu   sync.Mutex
	last *certgate.RenderRequest
}

func (r *fakeRenderer) Render(ctx context.Context, req certgate.RenderRequest) ([]byte, error) {
	r.mu.Lock()
	captured := req
	r.last = &captured
	r.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []byte("rendered:" + req.Values.CertificateNumber), nil
}

func (r *fakeRenderer) lastRequest() *certgate.RenderRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type fakeArtifacts struct {
	uploadErr error
}

func (a *fakeArtifacts) FetchBackground(ctx context.Context, file model.File) ([]byte, error) {
	return []byte("background"), nil
}

func (a *fakeArtifacts) UploadCertificate(ctx context.Context, templateId, fileName string, data []byte) (*model.File, error) {
	if a.uploadErr != nil {
		return nil, a.uploadErr
	}
	return &model.File{
		BaseModel:      model.BaseModel{ID: "file-" + fileName},
		FileName:       fileName,
		UniqueFileName: fileName,
		BucketName:     "certgate",
		Size:           int64(len(data)),
	}, nil
}

func newTestStore(maxUses *int) *fakeStore {
	return &fakeStore{
		template: &model.Template{
			BaseModel:  model.BaseModel{ID: "tpl-1"},
			CourseName: "Systems Programming",
			Width:      800,
			Height:     600,
			Status:     constant.TemplateStatusActive,
			Fields: []model.TemplateField{
				{
					Type:       certgate.FieldTypeRecipientName,
					XPercent:   50,
					YPercent:   40,
					IsRequired: true,
				},
			},
		},
		code: &model.AccessCode{
			BaseModel:  model.BaseModel{ID: "ac-1"},
			TemplateID: "tpl-1",
			Code:       "ABCD2345",
			UniqueLink: "link12345678",
			MaxUses:    maxUses,
			IsActive:   true,
		},
		numbers: make(map[string]bool),
	}
}

func newTestCoordinator(store Store, renderer Renderer, artifacts ArtifactStore) *Coordinator {
	return NewCoordinator(CoordinatorConfig{
		RenderTimeout: 2 * time.Second,
		VerifySecret:  "test-secret",
	}, store, renderer, artifacts, zap.NewNop().Sugar())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRedeemSuccess(t *testing.T) {
	store := newTestStore(intPtr(10))
	coordinator := newTestCoordinator(store, &fakeRenderer{}, &fakeArtifacts{})

	result, err := coordinator.Redeem(context.Background(), RedeemRequest{
		UniqueLink:    "link12345678",
		SecretCode:    "abcd2345",
		RecipientName: "Ahmed",
		EmbedQR:       true,
	})
	if err != nil {
		t.Fatalf("Redeem() error = %v", err)
	}

	if result.Certificate.RecipientName != "Ahmed" {
		t.Errorf("recipient = %q, want Ahmed", result.Certificate.RecipientName)
	}
	if result.Certificate.IssueMethod != constant.IssueMethodSelfService {
		t.Errorf("issue method = %q, want self_service", result.Certificate.IssueMethod)
	}
	if result.Certificate.AccessCodeID == nil || *result.Certificate.AccessCodeID != "ac-1" {
		t.Error("certificate is not linked to the redeemed access code")
	}
	if !certificateNumberPattern.MatchString(result.Certificate.CertificateNumber) {
		t.Errorf("certificate number %q has the wrong shape", result.Certificate.CertificateNumber)
	}

	if store.currentUses() != 1 {
		t.Errorf("currentUses = %d, want 1", store.currentUses())
	}
	waitFor(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.totalIssued == 1
	})
}

func TestRedeemErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*fakeStore)
		link    string
		secret  string
		wantErr error
	}{
		{"Unknown link", nil, "nope12345678", "ABCD2345", ErrNotFound},
		{"Wrong secret", nil, "link12345678", "WXYZ2345", ErrSecretMismatch},
		{
			"Deactivated",
			func(s *fakeStore) { s.code.IsActive = false },
			"link12345678", "ABCD2345", ErrDeactivated,
		},
		{
			"Expired",
			func(s *fakeStore) { s.code.ExpiresAt = timePtr(time.Now().Add(-time.Hour)) },
			"link12345678", "ABCD2345", ErrExpired,
		},
		{
			"Exhausted",
			func(s *fakeStore) { s.code.CurrentUses = 10 },
			"link12345678", "ABCD2345", ErrExhausted,
		},
		{
			"Template without required name field",
			func(s *fakeStore) { s.template.Fields = nil },
			"link12345678", "ABCD2345", ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(intPtr(10))
			if tt.mutate != nil {
				tt.mutate(store)
			}
			coordinator := newTestCoordinator(store, &fakeRenderer{}, &fakeArtifacts{})

			_, err := coordinator.Redeem(context.Background(), RedeemRequest{
				UniqueLink:    tt.link,
				SecretCode:    tt.secret,
				RecipientName: "Ahmed",
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Redeem() error = %v, want %v", err, tt.wantErr)
			}

			if store.issuedCount() != 0 {
				t.Error("a failed validation must not create a certificate")
			}
		})
	}
}

// The system's core invariant: maxUses=N under K>N simultaneous attempts
// yields exactly N certificates and K-N Exhausted errors, and currentUses
// settles at exactly N.
func TestRedeemConcurrencyInvariant(t *testing.T) {
	const maxUses = 5
	const attempts = 50

	store := newTestStore(intPtr(maxUses))
	coordinator := newTestCoordinator(store, &fakeRenderer{}, &fakeArtifacts{})

	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := coordinator.Redeem(context.Background(), RedeemRequest{
				UniqueLink:    "link12345678",
				SecretCode:    "ABCD2345",
				RecipientName: fmt.Sprintf("Recipient %d", n),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var succeeded, exhausted int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrExhausted):
			exhausted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != maxUses {
		t.Errorf("succeeded = %d, want %d", succeeded, maxUses)
	}
	if exhausted != attempts-maxUses {
		t.Errorf("exhausted = %d, want %d", exhausted, attempts-maxUses)
	}
	if store.currentUses() != maxUses {
		t.Errorf("currentUses = %d, want exactly %d", store.currentUses(), maxUses)
	}
	if store.issuedCount() != maxUses {
		t.Errorf("issued certificates = %d, want exactly %d", store.issuedCount(), maxUses)
	}
}

// Two recipients race for a single-use code: exactly one certificate.
func TestRedeemSingleUseRace(t *testing.T) {
	store := newTestStore(intPtr(1))
	coordinator := newTestCoordinator(store, &fakeRenderer{}, &fakeArtifacts{})

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, name := range []string{"Ahmed", "Sara"} {
		wg.Add(1)
		go func(recipient string) {
			defer wg.Done()
			_, err := coordinator.Redeem(context.Background(), RedeemRequest{
				UniqueLink:    "link12345678",
				SecretCode:    "ABCD2345",
				RecipientName: recipient,
			})
			results <- err
		}(name)
	}
	wg.Wait()
	close(results)

	var succeeded, exhausted int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrExhausted):
			exhausted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 || exhausted != 1 {
		t.Errorf("got %d successes and %d exhausted, want 1 and 1", succeeded, exhausted)
	}
	if store.currentUses() != 1 {
		t.Errorf("currentUses = %d, want 1", store.currentUses())
	}
}

// A render failure after the increment consumes the use and creates nothing.
func TestRedeemRenderFailureConsumesUse(t *testing.T) {
	store := newTestStore(intPtr(1))
	coordinator := newTestCoordinator(store, &fakeRenderer{err: errors.New("font corrupted")}, &fakeArtifacts{})

	_, err := coordinator.Redeem(context.Background(), RedeemRequest{
		UniqueLink:    "link12345678",
		SecretCode:    "ABCD2345",
		RecipientName: "Ahmed",
	})
	if !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", err)
	}

	if store.currentUses() != 1 {
		t.Errorf("currentUses = %d, the consumed use must not be rolled back", store.currentUses())
	}
	if store.issuedCount() != 0 {
		t.Error("no certificate may exist for a failed render")
	}
}

func TestRedeemRenderTimeout(t *testing.T) {
	store := newTestStore(intPtr(1))
	coordinator := NewCoordinator(CoordinatorConfig{
		RenderTimeout: 20 * time.Millisecond,
		VerifySecret:  "test-secret",
	}, store, &fakeRenderer{delay: time.Second}, &fakeArtifacts{}, zap.NewNop().Sugar())

	_, err := coordinator.Redeem(context.Background(), RedeemRequest{
		UniqueLink:    "link12345678",
		SecretCode:    "ABCD2345",
		RecipientName: "Ahmed",
	})
	if !errors.Is(err, ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure on timeout, got %v", err)
	}
}

func TestRedeemPersistenceFailureConsumesUse(t *testing.T) {
	store := newTestStore(intPtr(1))
	store.createErr = errors.New("disk full")
	coordinator := newTestCoordinator(store, &fakeRenderer{}, &fakeArtifacts{})

	_, err := coordinator.Redeem(context.Background(), RedeemRequest{
		UniqueLink:    "link12345678",
		SecretCode:    "ABCD2345",
		RecipientName: "Ahmed",
	})
	if !errors.Is(err, ErrPersistenceFailure) {
		t.Fatalf("expected ErrPersistenceFailure, got %v", err)
	}
	if store.currentUses() != 1 {
		t.Errorf("currentUses = %d, the consumed use must not be rolled back", store.currentUses())
	}
}

func TestIssueManual(t *testing.T) {
	store := newTestStore(nil)
	coordinator := newTestCoordinator(store, &fakeRenderer{}, &fakeArtifacts{})

	result, err := coordinator.IssueManual(context.Background(), "tpl-1", "Sara", nil, false)
	if err != nil {
		t.Fatalf("IssueManual() error = %v", err)
	}

	if result.Certificate.IssueMethod != constant.IssueMethodManual {
		t.Errorf("issue method = %q, want manual", result.Certificate.IssueMethod)
	}
	if result.Certificate.AccessCodeID != nil {
		t.Error("manual issuance must not reference an access code")
	}
	if store.currentUses() != 0 {
		t.Error("manual issuance must not consume access code uses")
	}
}

// The QR code and the signature panel are independent add-ons; requesting one
// must not drag the other into the render.
func TestRedeemAddonsAreIndependent(t *testing.T) {
	t.Run("Signature without QR", func(t *testing.T) {
		store := newTestStore(intPtr(10))
		renderer := &fakeRenderer{}
		coordinator := newTestCoordinator(store, renderer, &fakeArtifacts{})

		_, err := coordinator.Redeem(context.Background(), RedeemRequest{
			UniqueLink:     "link12345678",
			SecretCode:     "ABCD2345",
			RecipientName:  "Ahmed",
			EmbedSignature: true,
		})
		if err != nil {
			t.Fatalf("Redeem() error = %v", err)
		}

		rendered := renderer.lastRequest()
		if rendered == nil {
			t.Fatal("nothing was rendered")
		}
		if rendered.Signature == nil {
			t.Error("requested signature panel missing from the render")
		}
		if rendered.EmbedQR {
			t.Error("QR embedded although only the signature was requested")
		}
	})

	t.Run("QR without signature", func(t *testing.T) {
		store := newTestStore(intPtr(10))
		renderer := &fakeRenderer{}
		coordinator := newTestCoordinator(store, renderer, &fakeArtifacts{})

		_, err := coordinator.Redeem(context.Background(), RedeemRequest{
			UniqueLink:    "link12345678",
			SecretCode:    "ABCD2345",
			RecipientName: "Ahmed",
			EmbedQR:       true,
		})
		if err != nil {
			t.Fatalf("Redeem() error = %v", err)
		}

		rendered := renderer.lastRequest()
		if rendered == nil {
			t.Fatal("nothing was rendered")
		}
		if !rendered.EmbedQR {
			t.Error("requested QR missing from the render")
		}
		if rendered.Signature != nil {
			t.Error("signature panel embedded although only the QR was requested")
		}
	})
}

func TestIssueManualUnknownTemplate(t *testing.T) {
	store := newTestStore(nil)
	coordinator := newTestCoordinator(store, &fakeRenderer{}, &fakeArtifacts{})

	_, err := coordinator.IssueManual(context.Background(), "tpl-missing", "Sara", nil, false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
