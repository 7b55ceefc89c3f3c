package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "civicchain/pkg/domain-errors"
)

type RegisterRequestSuite struct {
	suite.Suite
}

func TestRegisterRequestSuite(t *testing.T) {
	suite.Run(t, new(RegisterRequestSuite))
}

func validRegisterRequest() *RegisterRequest {
	return &RegisterRequest{
		Email:       "  Asha.Rao@Example.org ",
		Password:    "s3cret-pass",
		FullName:    " Asha Rao ",
		DateOfBirth: "1990-04-12",
		Phone:       "+91 98765 43210",
		Address: Address{
			Line1:   "12 MG Road",
			City:    "Bengaluru",
			State:   "Karnataka",
			Pincode: "560001",
		},
	}
}

func (s *RegisterRequestSuite) TestNormalize() {
	req := validRegisterRequest()
	req.Normalize()
	s.Equal("asha.rao@example.org", req.Email)
	s.Equal("Asha Rao", req.FullName)

	var nilReq *RegisterRequest
	s.NotPanics(func() { nilReq.Normalize() })
}

func (s *RegisterRequestSuite) TestValidate() {
	s.Run("valid request builds profile", func() {
		req := validRegisterRequest()
		req.Normalize()
		s.Require().NoError(req.Validate())
		s.Equal(time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC), req.Profile().DateOfBirth)
	})

	cases := map[string]func(r *RegisterRequest){
		"missing email":      func(r *RegisterRequest) { r.Email = "" },
		"malformed email":    func(r *RegisterRequest) { r.Email = "not-an-email" },
		"short password":     func(r *RegisterRequest) { r.Password = "short" },
		"oversized password": func(r *RegisterRequest) { r.Password = strings.Repeat("p", 73) },
		"missing name":       func(r *RegisterRequest) { r.FullName = "" },
		"bad date of birth":  func(r *RegisterRequest) { r.DateOfBirth = "12/04/1990" },
		"bad phone":          func(r *RegisterRequest) { r.Phone = "call me" },
		"missing city":       func(r *RegisterRequest) { r.Address.City = "" },
		"bad pincode":        func(r *RegisterRequest) { r.Address.Pincode = "5600" },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			req := validRegisterRequest()
			req.Normalize()
			mutate(req)
			err := req.Validate()
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestBindIdentityRequestValidate(t *testing.T) {
	req := &BindIdentityRequest{
		Fingerprint: " 0xabc ",
		Attributes: DisclosedAttributes{
			AgeOver18:      true,
			SignalHash:     "0xsignal",
			ProofTimestamp: time.Now(),
		},
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	if req.Fingerprint != "0xabc" {
		t.Fatalf("expected trimmed fingerprint, got %q", req.Fingerprint)
	}

	req.Fingerprint = ""
	if err := req.Validate(); !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected validation error for empty fingerprint, got %v", err)
	}
}

func TestApplyBinding(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	acct := &Account{Status: AccountStatusActive}

	if got := acct.ApplyBinding("fp-1", DisclosedAttributes{State: "KA"}, now); got != BindApplied {
		t.Fatalf("first bind: got %v", got)
	}
	if got := acct.ApplyBinding("fp-1", DisclosedAttributes{}, now.Add(time.Hour)); got != BindUnchanged {
		t.Fatalf("same fingerprint: got %v", got)
	}
	if acct.Binding.BoundAt != now {
		t.Fatalf("rebinding the same fingerprint must not move bound_at")
	}
	if got := acct.ApplyBinding("fp-2", DisclosedAttributes{}, now); got != BindRejected {
		t.Fatalf("different fingerprint: got %v", got)
	}
	if acct.Binding.Fingerprint != "fp-1" {
		t.Fatalf("binding must never be replaced")
	}
}
