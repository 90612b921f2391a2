package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/mail"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/mail/mailmock"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
)

type authFixture struct {
	db     *gorm.DB
	clock  *testclock.Clock
	mailer *mailmock.MockMailer
	svc    *AuthService
	sent   []mail.Email
}

func newAuthFixture(c *qt.C) *authFixture {
	ctrl := gomock.NewController(c.TB)
	f := &authFixture{
		db:     newTestDB(c),
		clock:  testclock.NewClock(epoch),
		mailer: mailmock.NewMockMailer(ctrl),
	}
	f.svc = NewAuthService(f.db, testConfig(), f.mailer, f.clock, nil)
	return f
}

// expectMail records the next n emails instead of sending them.
func (f *authFixture) expectMail(n int) {
	f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Times(n).
		DoAndReturn(func(_ context.Context, e mail.Email) error {
			f.sent = append(f.sent, e)
			return nil
		})
}

func (f *authFixture) register(c *qt.C, email, password string) (uuid.UUID, string) {
	f.expectMail(1)
	resp, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Alice", Email: email, Password: password,
	})
	c.Assert(err, qt.IsNil)

	var user models.User
	c.Assert(f.db.First(&user, "id = ?", resp.UserID).Error, qt.IsNil)
	c.Assert(user.VerificationCode, qt.Not(qt.IsNil))
	return resp.UserID, *user.VerificationCode
}

func (f *authFixture) user(c *qt.C, id uuid.UUID) *models.User {
	var user models.User
	c.Assert(f.db.First(&user, "id = ?", id).Error, qt.IsNil)
	return &user
}

var sixDigits = regexp.MustCompile(`^[1-9][0-9]{5}$`)

func TestRegisterCreatesUnverifiedUser(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)

	id, code := f.register(c, "a@x.com", "hunter22")

	user := f.user(c, id)
	c.Assert(user.EmailVerified, qt.IsFalse)
	c.Assert(user.HasPendingVerification(), qt.IsTrue)
	c.Assert(sixDigits.MatchString(code), qt.IsTrue, qt.Commentf("code %q", code))
	c.Assert(user.VerificationExpiry.Equal(epoch.Add(15*time.Minute)), qt.IsTrue)
	c.Assert(user.Password, qt.Not(qt.Equals), "hunter22")
	c.Assert(user.Role, qt.Equals, models.RoleUser)

	c.Assert(f.sent, qt.HasLen, 1)
	c.Assert(f.sent[0].Kind, qt.Equals, mail.KindVerification)
	c.Assert(f.sent[0].To, qt.Equals, "a@x.com")
	c.Assert(f.sent[0].HTML, qt.Contains, code)
}

func TestRegisterSucceedsWhenMailFails(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	f.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("provider down"))

	resp, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Alice", Email: "a@x.com", Password: "pw",
	})
	c.Assert(err, qt.IsNil)
	c.Assert(resp.UserID, qt.Not(qt.Equals), uuid.Nil)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	f.register(c, "a@x.com", "pw")

	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Other", Email: "A@X.com", Password: "pw2",
	})
	c.Assert(err, qt.ErrorIs, ErrEmailTaken)
	c.Assert(err.Error(), qt.Equals, "email already in use")
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)

	// 40 runes but 80 bytes.
	_, err := f.svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Alice", Email: "a@x.com", Password: strings.Repeat("é", 40),
	})
	c.Assert(err, qt.ErrorIs, ErrValidation)

	var count int64
	c.Assert(f.db.Model(&models.User{}).Count(&count).Error, qt.IsNil)
	c.Assert(count, qt.Equals, int64(0))

	f.register(c, "b@x.com", strings.Repeat("a", 72))
}

func TestVerifyEmail(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, code := f.register(c, "a@x.com", "pw")

	wrong := "100000"
	if code == wrong {
		wrong = "100001"
	}
	err := f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "a@x.com", Code: wrong})
	c.Assert(err, qt.ErrorIs, ErrInvalidCode)
	c.Assert(f.user(c, id).EmailVerified, qt.IsFalse)

	err = f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "nobody@x.com", Code: code})
	c.Assert(err, qt.ErrorIs, ErrInvalidCode)

	f.clock.Advance(14 * time.Minute)
	err = f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "a@x.com", Code: code})
	c.Assert(err, qt.IsNil)

	user := f.user(c, id)
	c.Assert(user.EmailVerified, qt.IsTrue)
	c.Assert(user.VerificationCode, qt.IsNil)
	c.Assert(user.VerificationExpiry, qt.IsNil)
	c.Assert(user.HasPendingVerification(), qt.IsFalse)

	// The code is single use.
	err = f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "a@x.com", Code: code})
	c.Assert(err, qt.ErrorIs, ErrInvalidCode)
}

func TestVerifyEmailAfterExpiry(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, code := f.register(c, "a@x.com", "pw")

	f.clock.Advance(15*time.Minute + time.Second)
	err := f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "a@x.com", Code: code})
	c.Assert(err, qt.ErrorIs, ErrInvalidCode)

	user := f.user(c, id)
	c.Assert(user.EmailVerified, qt.IsFalse)
	c.Assert(*user.VerificationCode, qt.Equals, code)
}

func TestLoginUnverifiedIgnoresPassword(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	f.register(c, "a@x.com", "right")

	for _, pw := range []string{"right", "wrong", ""} {
		_, err := f.svc.Login(&dto.LoginRequest{Email: "a@x.com", Password: pw})
		c.Assert(err, qt.ErrorIs, ErrEmailNotVerified, qt.Commentf("password %q", pw))
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	_, code := f.register(c, "a@x.com", "right")
	c.Assert(f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "a@x.com", Code: code}), qt.IsNil)

	_, err := f.svc.Login(&dto.LoginRequest{Email: "a@x.com", Password: "wrong"})
	c.Assert(err, qt.ErrorIs, ErrInvalidCredentials)

	_, err = f.svc.Login(&dto.LoginRequest{Email: "missing@x.com", Password: "right"})
	c.Assert(err, qt.ErrorIs, ErrInvalidCredentials)
}

func TestRegisterVerifyLoginScenario(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, code := f.register(c, "a@x.com", "secret")
	c.Assert(f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "a@x.com", Code: code}), qt.IsNil)

	resp, err := f.svc.Login(&dto.LoginRequest{Email: "a@x.com", Password: "secret"})
	c.Assert(err, qt.IsNil)
	c.Assert(resp.User.ID, qt.Equals, id)
	c.Assert(resp.User.EmailVerified, qt.IsTrue)

	token, err := jwt.Parse(resp.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithTimeFunc(f.clock.Now))
	c.Assert(err, qt.IsNil)
	claims := token.Claims.(jwt.MapClaims)
	c.Assert(claims["sub"], qt.Equals, id.String())

	sid, err := uuid.Parse(claims["sid"].(string))
	c.Assert(err, qt.IsNil)
	user, err := f.svc.Authenticate(sid, id)
	c.Assert(err, qt.IsNil)
	c.Assert(user.Email, qt.Equals, "a@x.com")

	_, err = f.svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "B", Email: "a@x.com", Password: "other",
	})
	c.Assert(err, qt.ErrorIs, ErrEmailTaken)
}

func TestSessionLifecycle(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, code := f.register(c, "a@x.com", "secret")
	c.Assert(f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "a@x.com", Code: code}), qt.IsNil)
	_, err := f.svc.Login(&dto.LoginRequest{Email: "a@x.com", Password: "secret"})
	c.Assert(err, qt.IsNil)

	var session models.Session
	c.Assert(f.db.First(&session, "user_id = ?", id).Error, qt.IsNil)

	_, err = f.svc.Authenticate(session.ID, uuid.New())
	c.Assert(err, qt.ErrorIs, ErrSessionInvalid)

	c.Assert(f.svc.Logout(session.ID), qt.IsNil)
	_, err = f.svc.Authenticate(session.ID, id)
	c.Assert(err, qt.ErrorIs, ErrSessionInvalid)

	_, err = f.svc.Login(&dto.LoginRequest{Email: "a@x.com", Password: "secret"})
	c.Assert(err, qt.IsNil)
	var fresh models.Session
	c.Assert(f.db.Where("user_id = ? AND revoked = ?", id, false).First(&fresh).Error, qt.IsNil)

	f.clock.Advance(25 * time.Hour)
	_, err = f.svc.Authenticate(fresh.ID, id)
	c.Assert(err, qt.ErrorIs, ErrSessionInvalid)
}

func TestForgotPasswordUnknownEmailSendsNothing(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)

	// No Send expectation: the mock fails the test if mail goes out.
	err := f.svc.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "ghost@x.com"})
	c.Assert(err, qt.IsNil)
}

func TestResetPassword(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, code := f.register(c, "a@x.com", "old-password")
	c.Assert(f.svc.VerifyEmail(&dto.VerifyEmailRequest{Email: "a@x.com", Code: code}), qt.IsNil)
	_, err := f.svc.Login(&dto.LoginRequest{Email: "a@x.com", Password: "old-password"})
	c.Assert(err, qt.IsNil)

	f.expectMail(1)
	err = f.svc.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "a@x.com"})
	c.Assert(err, qt.IsNil)
	c.Assert(f.sent[len(f.sent)-1].Kind, qt.Equals, mail.KindPasswordReset)

	user := f.user(c, id)
	c.Assert(user.HasPendingReset(), qt.IsTrue)
	resetCode := *user.ResetCode

	err = f.svc.ResetPassword(&dto.ResetPasswordRequest{Email: "a@x.com", Code: "000000", NewPassword: "new-password"})
	c.Assert(err, qt.ErrorIs, ErrInvalidCode)

	err = f.svc.ResetPassword(&dto.ResetPasswordRequest{Email: "a@x.com", Code: resetCode, NewPassword: "new-password"})
	c.Assert(err, qt.IsNil)
	after := f.user(c, id)
	c.Assert(after.HasPendingReset(), qt.IsFalse)

	var active int64
	c.Assert(f.db.Model(&models.Session{}).Where("user_id = ? AND revoked = ?", id, false).Count(&active).Error, qt.IsNil)
	c.Assert(active, qt.Equals, int64(0))

	_, err = f.svc.Login(&dto.LoginRequest{Email: "a@x.com", Password: "old-password"})
	c.Assert(err, qt.ErrorIs, ErrInvalidCredentials)
	_, err = f.svc.Login(&dto.LoginRequest{Email: "a@x.com", Password: "new-password"})
	c.Assert(err, qt.IsNil)
}

func TestResetPasswordRejectsPasswordOverBcryptLimit(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, _ := f.register(c, "a@x.com", "pw")

	f.expectMail(1)
	c.Assert(f.svc.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "a@x.com"}), qt.IsNil)
	user := f.user(c, id)

	err := f.svc.ResetPassword(&dto.ResetPasswordRequest{
		Email: "a@x.com", Code: *user.ResetCode, NewPassword: strings.Repeat("é", 40),
	})
	c.Assert(err, qt.ErrorIs, ErrValidation)

	after := f.user(c, id)
	c.Assert(after.HasPendingReset(), qt.IsTrue)
	c.Assert(after.Password, qt.Equals, user.Password)
}

func TestResetPasswordExpiredCode(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, _ := f.register(c, "a@x.com", "pw")

	f.expectMail(1)
	c.Assert(f.svc.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "a@x.com"}), qt.IsNil)
	resetCode := *f.user(c, id).ResetCode

	f.clock.Advance(16 * time.Minute)
	err := f.svc.ResetPassword(&dto.ResetPasswordRequest{Email: "a@x.com", Code: resetCode, NewPassword: "new"})
	c.Assert(err, qt.ErrorIs, ErrInvalidCode)
}

func TestUpdateProfile(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, _ := f.register(c, "a@x.com", "pw")

	name := "Alice Smith"
	linked := true
	fbID := "fb-123"
	resp, err := f.svc.UpdateProfile(id, &dto.UpdateProfileRequest{
		Name: &name, FacebookLinked: &linked, FacebookID: &fbID,
	})
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Name, qt.Equals, name)
	c.Assert(resp.FacebookLinked, qt.IsTrue)
	c.Assert(*resp.FacebookID, qt.Equals, fbID)

	resp, err = f.svc.UpdateProfile(id, &dto.UpdateProfileRequest{})
	c.Assert(err, qt.IsNil)
	c.Assert(resp.Name, qt.Equals, name)

	blank := "  "
	_, err = f.svc.UpdateProfile(id, &dto.UpdateProfileRequest{Name: &blank})
	c.Assert(err, qt.ErrorIs, ErrValidation)

	_, err = f.svc.GetProfile(uuid.New())
	c.Assert(err, qt.ErrorIs, ErrUserNotFound)
}

func TestDeleteAccountCascades(t *testing.T) {
	c := qt.New(t)
	f := newAuthFixture(c)
	id, _ := f.register(c, "a@x.com", "pw")
	other := seedUser(c, f.db, "b@x.com")
	product := seedProduct(c, f.db, "Milk", "3.49", 10)

	lists := NewListService(f.db)
	list, err := lists.CreateList(id, &dto.CreateListRequest{Title: "Weekly"})
	c.Assert(err, qt.IsNil)
	_, err = lists.AddItem(id, list.ID, &dto.CreateListItemRequest{Name: "Milk", Quantity: one, Unit: "l"})
	c.Assert(err, qt.IsNil)
	_, err = lists.CreateList(other.ID, &dto.CreateListRequest{Title: "Keep"})
	c.Assert(err, qt.IsNil)

	orders := NewOrderService(f.db, f.clock, nil)
	_, err = orders.CreateOrder(id, &dto.CreateOrderRequest{Items: []dto.OrderLineRequest{{ProductID: product.ID, Quantity: 1}}})
	c.Assert(err, qt.IsNil)

	c.Assert(f.svc.DeleteAccount(id, "wrong"), qt.ErrorIs, ErrInvalidCredentials)
	c.Assert(f.svc.DeleteAccount(id, "pw"), qt.IsNil)

	for _, model := range []interface{}{&models.List{}, &models.ListItem{}, &models.Order{}, &models.OrderItem{}, &models.Payment{}} {
		var n int64
		c.Assert(f.db.Model(model).Count(&n).Error, qt.IsNil)
		want := int64(0)
		if _, ok := model.(*models.List); ok {
			want = 1
		}
		c.Assert(n, qt.Equals, want, qt.Commentf("%T", model))
	}
	_, err = f.svc.GetProfile(id)
	c.Assert(err, qt.ErrorIs, ErrUserNotFound)
}
