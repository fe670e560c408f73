// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package lifecycle_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/warden/internal/auth"
)

const (
	email       = "alice@example.com"
	password    = "Str0ng!Pass"
	newPassword = "N3w-Secret!"
)

var _ = Describe("Credential lifecycle", func() {
	var (
		box *outbox
		svc *auth.Service
	)

	BeforeEach(func() {
		env.truncate()
		box = &outbox{}
		svc = newService(box)
	})

	registerActive := func() *auth.Account {
		_, err := svc.Register(env.ctx, email, password)
		Expect(err).NotTo(HaveOccurred())
		account, err := svc.Activate(env.ctx, box.token(auth.EventActivationRequested))
		Expect(err).NotTo(HaveOccurred())
		return account
	}

	Describe("registration and activation", func() {
		It("activates once and then logs in", func() {
			account, err := svc.Register(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())
			Expect(account.Active).To(BeFalse())
			Expect(account.Group).To(Equal(auth.GroupUser))

			_, err = svc.Login(env.ctx, email, password)
			Expect(err).To(MatchError(auth.ErrInactiveAccount))

			token := box.token(auth.EventActivationRequested)
			activated, err := svc.Activate(env.ctx, token)
			Expect(err).NotTo(HaveOccurred())
			Expect(activated.ID).To(Equal(account.ID))
			Expect(activated.Active).To(BeTrue())

			_, err = svc.Activate(env.ctx, token)
			Expect(err).To(MatchError(auth.ErrTokenExpired))

			pair, err := svc.Login(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())
			Expect(pair.AccessToken).NotTo(BeEmpty())
			Expect(env.count("refresh_tokens")).To(Equal(1))

			Expect(box.kinds()).To(Equal([]auth.EventKind{
				auth.EventActivationRequested,
				auth.EventActivationCompleted,
			}))
		})

		It("rejects a duplicate email through the unique index", func() {
			_, err := svc.Register(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Register(env.ctx, email, password)
			Expect(err).To(MatchError(auth.ErrDuplicateEmail))
			Expect(env.count("credentials")).To(Equal(1))
			Expect(env.count("activation_tokens")).To(Equal(1))
		})

		It("lets exactly one concurrent activation win", func() {
			_, err := svc.Register(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())
			token := box.token(auth.EventActivationRequested)

			const n = 8
			results := make(chan error, n)
			var wg sync.WaitGroup
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.Activate(env.ctx, token)
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			successes := 0
			for err := range results {
				if err == nil {
					successes++
					continue
				}
				Expect(err).To(MatchError(auth.ErrTokenExpired))
			}
			Expect(successes).To(Equal(1))
		})
	})

	Describe("refresh rotation", func() {
		It("rejects a replayed refresh token", func() {
			registerActive()
			pair, err := svc.Login(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())

			rotated, err := svc.RefreshSession(env.ctx, pair.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(rotated.RefreshToken).NotTo(Equal(pair.RefreshToken))

			_, err = svc.RefreshSession(env.ctx, pair.RefreshToken)
			Expect(err).To(MatchError(auth.ErrTokenExpired))

			_, err = svc.RefreshSession(env.ctx, rotated.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
			Expect(env.count("refresh_tokens")).To(Equal(1))
		})

		It("lets exactly one concurrent rotation win", func() {
			registerActive()
			pair, err := svc.Login(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())

			const n = 8
			results := make(chan error, n)
			var wg sync.WaitGroup
			for range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.RefreshSession(env.ctx, pair.RefreshToken)
					results <- err
				}()
			}
			wg.Wait()
			close(results)

			successes := 0
			for err := range results {
				if err == nil {
					successes++
				}
			}
			Expect(successes).To(Equal(1))
			Expect(env.count("refresh_tokens")).To(Equal(1))
		})
	})

	Describe("password reset", func() {
		It("writes nothing for an unknown email", func() {
			msg, err := svc.RequestPasswordReset(env.ctx, "nobody@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(msg).To(Equal(auth.ResetRequestMessage))
			Expect(env.count("password_reset_tokens")).To(BeZero())
			Expect(box.kinds()).To(BeEmpty())
		})

		It("keeps one reset token per credential and replaces the password", func() {
			registerActive()

			_, err := svc.RequestPasswordReset(env.ctx, email)
			Expect(err).NotTo(HaveOccurred())
			first := box.token(auth.EventResetRequested)

			_, err = svc.RequestPasswordReset(env.ctx, email)
			Expect(err).NotTo(HaveOccurred())
			second := box.token(auth.EventResetRequested)
			Expect(env.count("password_reset_tokens")).To(Equal(1))

			Expect(svc.ResetPassword(env.ctx, first, newPassword)).To(MatchError(auth.ErrTokenExpired))
			Expect(svc.ResetPassword(env.ctx, second, newPassword)).To(Succeed())
			Expect(env.count("password_reset_tokens")).To(BeZero())

			_, err = svc.Login(env.ctx, email, password)
			Expect(err).To(MatchError(auth.ErrInvalidCredentials))
			_, err = svc.Login(env.ctx, email, newPassword)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("logout", func() {
		It("revokes only the presented session", func() {
			registerActive()
			first, err := svc.Login(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())
			second, err := svc.Login(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())

			Expect(svc.Logout(env.ctx, first.RefreshToken)).To(Succeed())
			Expect(svc.Logout(env.ctx, first.RefreshToken)).To(MatchError(auth.ErrTokenNotFound))

			_, err = svc.RefreshSession(env.ctx, first.RefreshToken)
			Expect(err).To(MatchError(auth.ErrTokenExpired))
			_, err = svc.RefreshSession(env.ctx, second.RefreshToken)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("purging", func() {
		It("removes nothing while every token is live", func() {
			registerActive()
			_, err := svc.Login(env.ctx, email, password)
			Expect(err).NotTo(HaveOccurred())

			result, err := env.Tokens.DeleteExpired(env.ctx, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Total()).To(BeZero())
			Expect(env.count("refresh_tokens")).To(Equal(1))
		})
	})
})
