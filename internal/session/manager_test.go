package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ent0n29/imagechat/internal/chat"
)

func TestManagerCreateGetRemove(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create()
	if s.ClientID == "" {
		t.Fatalf("client ID should not be empty")
	}
	if s.State.UserID == "" || s.State.HasSession() {
		t.Fatalf("unexpected initial state: %+v", s.State)
	}

	got, err := m.Get(s.ClientID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State.UserID != s.State.UserID {
		t.Fatalf("UserID = %q, want %q", got.State.UserID, s.State.UserID)
	}
	if m.ActiveCount() != 1 {
		t.Fatalf("ActiveCount() = %d, want 1", m.ActiveCount())
	}

	if err := m.Remove(s.ClientID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := m.Get(s.ClientID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after Remove error = %v, want ErrNotFound", err)
	}
}

func TestManagerResolve(t *testing.T) {
	m := NewManager(time.Minute)
	first, created := m.Resolve("")
	if !created {
		t.Fatalf("Resolve(\"\") created = false, want true")
	}
	again, created := m.Resolve(first.ClientID)
	if created || again.ClientID != first.ClientID {
		t.Fatalf("Resolve(existing) = %q created=%v, want %q false", again.ClientID, created, first.ClientID)
	}
	other, created := m.Resolve("stale-cookie")
	if !created || other.ClientID == "stale-cookie" {
		t.Fatalf("Resolve(unknown) = %q created=%v, want a fresh client", other.ClientID, created)
	}
}

func TestManagerUpdateIsolatesSnapshots(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create()

	var hooked []Snapshot
	m.SetChangeHook(func(snap Snapshot) { hooked = append(hooked, snap) })

	wantErr := errors.New("rejected")
	snap, err := m.Update(s.ClientID, func(st *chat.State) error {
		st.SessionID = "session-1"
		st.Turns = append(st.Turns, chat.Turn{Role: chat.RoleUser, Text: "hi"})
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Update() error = %v, want %v", err, wantErr)
	}
	if snap.Version != 1 || len(snap.State.Turns) != 1 {
		t.Fatalf("unexpected snapshot: version=%d turns=%d", snap.Version, len(snap.State.Turns))
	}
	if len(hooked) != 1 || hooked[0].Version != 1 {
		t.Fatalf("change hook calls = %+v, want one at version 1", hooked)
	}

	snap.State.Turns[0].Text = "mutated"
	got, _ := m.Get(s.ClientID)
	if got.State.Turns[0].Text != "hi" {
		t.Fatalf("snapshot shares turns with live state")
	}

	if _, err := m.Update("missing", func(*chat.State) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestManagerUpdateSerializesPerClient(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.Create()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Update(s.ClientID, func(st *chat.State) error {
				st.Turns = append(st.Turns, chat.Turn{Role: chat.RoleUser})
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := m.Get(s.ClientID)
	if len(got.State.Turns) != 50 || got.Version != 50 {
		t.Fatalf("turns=%d version=%d, want 50/50", len(got.State.Turns), got.Version)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30 * time.Millisecond)
	idle := m.Create()
	busy := m.Create()
	if _, err := m.Update(busy.ClientID, func(st *chat.State) error {
		st.Status = chat.StatusPending
		return nil
	}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	var mu sync.Mutex
	var expired []string
	m.SetExpireHook(func(id string) {
		mu.Lock()
		expired = append(expired, id)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	time.Sleep(90 * time.Millisecond)
	if _, err := m.Get(idle.ClientID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle client still present, err = %v", err)
	}
	if _, err := m.Get(busy.ClientID); err != nil {
		t.Fatalf("pending client expired: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(expired) != 1 || expired[0] != idle.ClientID {
		t.Fatalf("expired = %v, want [%s]", expired, idle.ClientID)
	}
}
