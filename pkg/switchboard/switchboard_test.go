package switchboard

import (
	"testing"
	"time"
)

func TestSelectAndCurrent(t *testing.T) {
	s := New()

	if _, ok := s.Current("user-1"); ok {
		t.Fatal("expected no selection before Select")
	}

	s.Select(Selection{UserID: "user-1", OrgID: "org-a", OrgName: "Alpha"})

	sel, ok := s.Current("user-1")
	if !ok {
		t.Fatal("expected selection after Select")
	}
	if sel.OrgID != "org-a" || sel.OrgName != "Alpha" {
		t.Errorf("unexpected selection: %+v", sel)
	}
	if sel.At.IsZero() {
		t.Error("expected At to be stamped")
	}
}

func TestLastWriterWins(t *testing.T) {
	s := New()

	s.Select(Selection{UserID: "user-1", OrgID: "org-a"})
	s.Select(Selection{UserID: "user-1", OrgID: "org-b"})

	sel, _ := s.Current("user-1")
	if sel.OrgID != "org-b" {
		t.Errorf("expected org-b to win, got %s", sel.OrgID)
	}
}

func TestSelectionsAreIsolatedPerUser(t *testing.T) {
	s := New()

	s.Select(Selection{UserID: "user-1", OrgID: "org-a"})
	s.Select(Selection{UserID: "user-2", OrgID: "org-b"})

	if sel, _ := s.Current("user-1"); sel.OrgID != "org-a" {
		t.Errorf("user-1 selection clobbered: %+v", sel)
	}
	if sel, _ := s.Current("user-2"); sel.OrgID != "org-b" {
		t.Errorf("user-2 selection clobbered: %+v", sel)
	}
}

func TestClear(t *testing.T) {
	s := New()

	s.Select(Selection{UserID: "user-1", OrgID: "org-a"})
	s.Clear("user-1")

	if _, ok := s.Current("user-1"); ok {
		t.Error("expected selection to be cleared")
	}
}

func TestSubscribeReceivesSwitches(t *testing.T) {
	s := New()

	ch, cancel := s.Subscribe(4)
	defer cancel()

	s.Select(Selection{UserID: "user-1", OrgID: "org-a"})

	select {
	case sel := <-ch:
		if sel.OrgID != "org-a" {
			t.Errorf("unexpected notification: %+v", sel)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestSlowSubscriberDoesNotBlockSelect(t *testing.T) {
	s := New()

	// Buffer of one, never drained.
	_, cancel := s.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.Select(Selection{UserID: "user-1", OrgID: "org-a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Select blocked on a slow subscriber")
	}
}

func TestConcurrentSelectAndCancel(t *testing.T) {
	s := New()

	// Cancelling a subscription while switches are in flight must not
	// send on the closed channel. Run with -race.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			s.Select(Selection{UserID: "user-1", OrgID: "org-a"})
		}
		close(done)
	}()

	for i := 0; i < 100; i++ {
		ch, cancel := s.Subscribe(1)
		cancel()
		for range ch {
			// drain anything buffered before the close
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent Select did not finish")
	}
}

func TestCancelStopsNotifications(t *testing.T) {
	s := New()

	ch, cancel := s.Subscribe(1)
	cancel()
	cancel() // double cancel is safe

	s.Select(Selection{UserID: "user-1", OrgID: "org-a"})

	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after cancel")
	}
}
