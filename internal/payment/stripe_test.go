package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap/zaptest"

	"julianmorley.ca/pureview/api/pkg/global"
)

func TestToMinorUnits(t *testing.T) {
	tests := map[string]int64{
		"10":     1000,
		"19.99":  1999,
		"0.015":  2,
		"12.344": 1234,
		"0.5":    50,
	}
	for in, want := range tests {
		assert.Equal(t, want, ToMinorUnits(decimal.RequireFromString(in)), in)
	}
}

func TestCreateIntent(t *testing.T) {
	var got *stripe.PaymentIntentParams
	g := NewGateway(func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		got = params
		return &stripe.PaymentIntent{ClientSecret: "pi_123_secret_456"}, nil
	}, "EUR", zaptest.NewLogger(t))

	secret, err := g.CreateIntent(context.Background(), decimal.RequireFromString("42.50"), "")
	require.NoError(t, err)
	assert.Equal(t, "pi_123_secret_456", secret)

	require.NotNil(t, got)
	assert.Equal(t, int64(4250), *got.Amount)
	assert.Equal(t, "eur", *got.Currency)
	require.Len(t, got.PaymentMethodTypes, 1)
	assert.Equal(t, "card", *got.PaymentMethodTypes[0])
}

func TestCreateIntentRejectsNonPositiveAmounts(t *testing.T) {
	g := NewGateway(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		t.Fatal("processor must not be called")
		return nil, nil
	}, "eur", zaptest.NewLogger(t))

	for _, amount := range []string{"0", "-5", "0.001"} {
		_, err := g.CreateIntent(context.Background(), decimal.RequireFromString(amount), "")
		assert.ErrorIs(t, err, global.ErrValidation, amount)
	}
}

func TestUnconfiguredGateway(t *testing.T) {
	g := NewStripeGateway("", "eur", zaptest.NewLogger(t))

	_, err := g.CreateIntent(context.Background(), decimal.NewFromInt(5), "")
	assert.ErrorIs(t, err, global.ErrUnavailable)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	g := NewGateway(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		calls++
		return nil, errors.New("api unreachable")
	}, "eur", zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := g.CreateIntent(ctx, decimal.NewFromInt(1), "")
		require.ErrorIs(t, err, global.ErrUnavailable)
		assert.Equal(t, "payment processor is unavailable", global.MessageOf(err))
	}

	_, err := g.CreateIntent(ctx, decimal.NewFromInt(1), "")
	assert.ErrorIs(t, err, global.ErrUnavailable)
	assert.Equal(t, 5, calls)
}

func TestProcessorErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind global.Kind
	}{
		{"network", errors.New("dial tcp: i/o timeout"), global.KindUnavailable},
		{"deadline", context.DeadlineExceeded, global.KindUnavailable},
		{"server error", &stripe.Error{HTTPStatusCode: 503, Type: stripe.ErrorTypeAPI}, global.KindUnavailable},
		{"rate limited", &stripe.Error{HTTPStatusCode: 429}, global.KindUnavailable},
		{"bad key", &stripe.Error{HTTPStatusCode: 401}, global.KindUnavailable},
		{"declined", &stripe.Error{HTTPStatusCode: 402, Msg: "Your card was declined."}, global.KindValidation},
		{"invalid request", &stripe.Error{HTTPStatusCode: 400, Type: stripe.ErrorTypeInvalidRequest}, global.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
				return nil, tt.err
			}, "eur", zaptest.NewLogger(t))

			_, err := g.CreateIntent(context.Background(), decimal.NewFromInt(3), "")
			assert.Equal(t, tt.kind, global.KindOf(err))
		})
	}
}

func TestDeclinesDoNotTripBreaker(t *testing.T) {
	g := NewGateway(func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		return nil, &stripe.Error{HTTPStatusCode: 402, Msg: "Your card was declined."}
	}, "eur", zaptest.NewLogger(t))

	for i := 0; i < 8; i++ {
		_, err := g.CreateIntent(context.Background(), decimal.NewFromInt(1), "")
		require.ErrorIs(t, err, global.ErrValidation)
		assert.Equal(t, "Your card was declined.", global.MessageOf(err))
	}
}

func TestCreateIntentBoundsTheCall(t *testing.T) {
	var deadline bool
	g := NewGateway(func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		_, deadline = params.Context.Deadline()
		return &stripe.PaymentIntent{ClientSecret: "s"}, nil
	}, "eur", zaptest.NewLogger(t))

	_, err := g.CreateIntent(context.Background(), decimal.NewFromInt(1), "")
	require.NoError(t, err)
	assert.True(t, deadline)
}
