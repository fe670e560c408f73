// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// Password policy violations reported in the "violations" error context.
const (
	ViolationTooShort       = "too_short"
	ViolationMissingUpper   = "missing_upper"
	ViolationMissingLower   = "missing_lower"
	ViolationMissingDigit   = "missing_digit"
	ViolationMissingSpecial = "missing_special"
	ViolationDenied         = "denied"
)

// PasswordPolicy describes the strength rules a new password must satisfy.
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
	// Denied holds case-insensitive glob patterns; a password matching any
	// of them is rejected.
	Denied []string
}

// DefaultPasswordPolicy requires eight characters from all four classes.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// PasswordValidator checks passwords against a compiled PasswordPolicy.
type PasswordValidator struct {
	policy PasswordPolicy
	denied []glob.Glob
}

// NewPasswordValidator compiles the policy's deny patterns.
func NewPasswordValidator(policy PasswordPolicy) (*PasswordValidator, error) {
	if policy.MinLength < 1 {
		return nil, oops.Code("POLICY_INVALID").With("min_length", policy.MinLength).Errorf("minimum length must be positive")
	}
	v := &PasswordValidator{policy: policy}
	for _, pattern := range policy.Denied {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, oops.Code("POLICY_INVALID").With("pattern", pattern).Wrap(err)
		}
		v.denied = append(v.denied, g)
	}
	return v, nil
}

// Validate returns a WeakPassword error listing every rule the password
// breaks, or nil.
func (v *PasswordValidator) Validate(password string) error {
	violations := v.violations(password)
	if len(violations) == 0 {
		return nil
	}
	return oops.Code(CodeWeakPassword).With("violations", violations).Wrap(ErrWeakPassword)
}

func (v *PasswordValidator) violations(password string) []string {
	var out []string
	if utf8.RuneCountInString(password) < v.policy.MinLength {
		out = append(out, ViolationTooShort)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if v.policy.RequireUpper && !upper {
		out = append(out, ViolationMissingUpper)
	}
	if v.policy.RequireLower && !lower {
		out = append(out, ViolationMissingLower)
	}
	if v.policy.RequireDigit && !digit {
		out = append(out, ViolationMissingDigit)
	}
	if v.policy.RequireSpecial && !special {
		out = append(out, ViolationMissingSpecial)
	}

	folded := strings.ToLower(password)
	for _, g := range v.denied {
		if g.Match(folded) {
			out = append(out, ViolationDenied)
			break
		}
	}
	return out
}
