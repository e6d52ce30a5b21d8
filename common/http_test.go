package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPGet(t *testing.T) {
	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	t.Run("TestHTTPGetSuccess", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "application/json", r.Header.Get("Accept"))

			_, _ = w.Write([]byte(`{"name": "usd", "value": 1.25}`))
		}))
		defer server.Close()

		result, err := HTTPGet[payload](context.Background(), server.URL)
		require.NoError(t, err)
		require.Equal(t, "usd", result.Name)
		require.Equal(t, 1.25, result.Value)
	})

	t.Run("TestHTTPGetHeader", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "secret", r.Header.Get("apikey"))

			_, _ = w.Write([]byte(`{"name": "eur"}`))
		}))
		defer server.Close()

		result, err := HTTPGet[payload](context.Background(), server.URL, WithHTTPHeader("apikey", "secret"))
		require.NoError(t, err)
		require.Equal(t, "eur", result.Name)
	})

	t.Run("TestHTTPGetStatusError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`rate limit`))
		}))
		defer server.Close()

		_, err := HTTPGet[payload](context.Background(), server.URL)
		require.Error(t, err)

		statusErr := &HTTPStatusError{}
		require.True(t, errors.As(err, &statusErr))
		require.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	})

	t.Run("TestHTTPGetInvalidBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not a json`))
		}))
		defer server.Close()

		_, err := HTTPGet[payload](context.Background(), server.URL)
		require.Error(t, err)
		require.ErrorContains(t, err, "failed to decode response")
	})

	t.Run("TestHTTPGetContextCancel", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-time.After(time.Millisecond * 300)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
		defer cancel()

		_, err := HTTPGet[payload](ctx, server.URL)
		require.Error(t, err)
	})
}

func TestRetryForever(t *testing.T) {
	t.Run("TestRetryForeverSucceeds", func(t *testing.T) {
		cnt := 0

		err := RetryForever(context.Background(), time.Millisecond, func(ctx context.Context) error {
			cnt++
			if cnt < 3 {
				return errors.New("still failing")
			}

			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, cnt)
	})

	t.Run("TestRetryForeverContextDone", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*30)
		defer cancel()

		err := RetryForever(ctx, time.Millisecond*5, func(ctx context.Context) error {
			return errors.New("always failing")
		})
		require.Error(t, err)
	})
}
