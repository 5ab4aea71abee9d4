package venue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"predictarb/internal/executor"
	"predictarb/internal/money"
)

func TestRouter_UnregisteredVenue(t *testing.T) {
	r := NewRouter()

	_, err := r.PlaceLimit(context.Background(), "kalshi", "tok-1", money.NewSize("1"), money.NewPrice("0.5"), executor.Yes)
	if err == nil || !strings.Contains(err.Error(), `no client registered for venue "kalshi"`) {
		t.Fatalf("err = %v", err)
	}

	if err := r.Cancel(context.Background(), "kalshi", "ord-1"); err == nil {
		t.Fatal("expected error")
	}

	if _, _, err := r.GetOrder(context.Background(), "kalshi", "ord-1"); err == nil {
		t.Fatal("expected error")
	}

	if _, err := r.PlaceMarket(context.Background(), "kalshi", "tok-1", money.NewSize("1"), executor.Yes); err == nil {
		t.Fatal("expected error")
	}

	if _, err := r.Balance(context.Background(), "kalshi", "tok-1"); err == nil {
		t.Fatal("expected error")
	}

	if _, err := r.BestAsk(context.Background(), "kalshi", "tok-1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRouter_DispatchesToRegisteredClient(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"order_id":"ord-1","status":"placed"}`))
	}))
	defer srv.Close()

	r := NewRouter()
	r.Register("polymarket", NewRESTClient("polymarket", srv.URL, "", zap.NewNop()))

	id, err := r.PlaceLimit(context.Background(), "polymarket", "tok-1", money.NewSize("1"), money.NewPrice("0.5"), executor.Yes)
	if err != nil {
		t.Fatal(err)
	}
	if id != "ord-1" {
		t.Fatalf("order id = %q", id)
	}
	if gotPath != "/orders" {
		t.Fatalf("path = %q", gotPath)
	}

	// A second, unregistered venue must still fail even though one venue
	// is wired up — Router dispatches per-venue, it doesn't fall back.
	if _, err := r.PlaceLimit(context.Background(), "kalshi", "tok-1", money.NewSize("1"), money.NewPrice("0.5"), executor.Yes); err == nil {
		t.Fatal("expected error for unregistered venue")
	}
}

func TestRouter_RegisterReplacesExistingClient(t *testing.T) {
	r := NewRouter()
	srv1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance":"1"}`))
	}))
	defer srv1.Close()
	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"balance":"2"}`))
	}))
	defer srv2.Close()

	r.Register("polymarket", NewRESTClient("polymarket", srv1.URL, "", zap.NewNop()))
	r.Register("polymarket", NewRESTClient("polymarket", srv2.URL, "", zap.NewNop()))

	bal, err := r.Balance(context.Background(), "polymarket", "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if bal.Cmp(money.NewSize("2")) != 0 {
		t.Fatalf("balance = %v, want second registration to win", bal)
	}
}
