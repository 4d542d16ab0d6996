package game

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"reaction", ModeReaction, false},
		{"rhythm", ModeRhythm, false},
		{"Rhythm", ModeNone, true},
		{" rhythm ", ModeNone, true},
		{"REACTION", ModeNone, true},
		{"", ModeNone, true},
		{"chess", ModeNone, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidMode) {
			t.Errorf("ParseMode(%q) error = %v, want ErrInvalidMode", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSelectMode(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.session.SelectMode(Mode("chess")); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("SelectMode(chess) error = %v, want ErrInvalidMode", err)
	}

	if err := f.session.SelectMode(ModeRhythm); err != nil {
		t.Fatalf("SelectMode(rhythm) error = %v", err)
	}
	st := f.session.Status()
	if st.CurrentGame == nil || *st.CurrentGame != ModeRhythm {
		t.Errorf("current game = %v, want rhythm", st.CurrentGame)
	}
	if st.GameActive {
		t.Error("selecting a mode must not start it")
	}
}

func TestSelectModeDuringGameKeepsRunningMode(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.session.Start(ModeReaction); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.session.SelectMode(ModeRhythm); err != nil {
		t.Fatalf("SelectMode() error = %v", err)
	}

	s := f.state()
	if s.Mode != ModeReaction || !s.Active {
		t.Errorf("mode = %q active = %v, want running reaction", s.Mode, s.Active)
	}
	if s.Selected != ModeRhythm {
		t.Errorf("selected = %q, want rhythm", s.Selected)
	}
}

func TestStartResetsScores(t *testing.T) {
	for _, m := range []Mode{ModeReaction, ModeRhythm} {
		t.Run(string(m), func(t *testing.T) {
			f := newFixture(t, nil)
			f.set(func(st *State) {
				st.Scores[Player1] = 7
				st.Scores[Player2] = -4
			})

			if err := f.session.Start(m); err != nil {
				t.Fatalf("Start(%s) error = %v", m, err)
			}

			s := f.state()
			if s.Scores[Player1] != 0 || s.Scores[Player2] != 0 {
				t.Errorf("scores = %v, want both 0", s.Scores)
			}
			if !s.Active || s.Mode != m {
				t.Errorf("active = %v mode = %q, want %q active", s.Active, s.Mode, m)
			}
			if f.notifier.last().Type != EventGameStarted {
				t.Errorf("last event = %s, want %s", f.notifier.last().Type, EventGameStarted)
			}
		})
	}
}

func TestStartRhythmGeneratesScript(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.session.Start(ModeRhythm); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s := f.state()
	if len(s.Notes) != 20 {
		t.Fatalf("len(notes) = %d, want 20", len(s.Notes))
	}
	for i, n := range s.Notes {
		if want := int64(i+1) * 1000; n.TimeMs != want {
			t.Errorf("note %d time = %d, want %d", i, n.TimeMs, want)
		}
		if n.Column < 0 || n.Column > 2 {
			t.Errorf("note %d column = %d, want 0..2", i, n.Column)
		}
	}
	if !s.RoundStart.Equal(f.clock.Now()) {
		t.Errorf("round start = %v, want %v", s.RoundStart, f.clock.Now())
	}
}

func TestStartConflict(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.session.Start(ModeReaction); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.press(Player1, 0) // mutate a score so the failed start is observable
	before := f.state()

	for _, m := range []Mode{ModeReaction, ModeRhythm} {
		if err := f.session.Start(m); !errors.Is(err, ErrConflict) {
			t.Errorf("Start(%s) error = %v, want ErrConflict", m, err)
		}
	}

	after := f.state()
	if after.Mode != before.Mode || after.Generation != before.Generation || after.Scores[Player1] != before.Scores[Player1] {
		t.Errorf("state changed by rejected start: before %+v after %+v", before, after)
	}
}

func TestStopNotActiveLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.session.Stop(ModeReaction); !errors.Is(err, ErrNotActive) {
		t.Fatalf("Stop() on idle session error = %v, want ErrNotActive", err)
	}

	if err := f.session.Start(ModeRhythm); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	before := f.state()
	if err := f.session.Stop(ModeReaction); !errors.Is(err, ErrNotActive) {
		t.Fatalf("Stop(reaction) during rhythm error = %v, want ErrNotActive", err)
	}
	after := f.state()
	if after.Generation != before.Generation || !after.Active || len(after.Notes) != len(before.Notes) {
		t.Errorf("state changed by rejected stop")
	}

	if err := f.session.Stop(ModeRhythm); err != nil {
		t.Fatalf("Stop(rhythm) error = %v", err)
	}
	if err := f.session.Stop(ModeRhythm); !errors.Is(err, ErrNotActive) {
		t.Fatalf("second Stop(rhythm) error = %v, want ErrNotActive", err)
	}
}

func TestStopReactionClearsIndicator(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.session.Start(ModeReaction); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	f.set(func(st *State) { st.Target = 2 })
	f.indicator.Set(2, true)

	if err := f.session.Stop(ModeReaction); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	s := f.state()
	if s.Active || s.Mode != ModeNone || s.Target != -1 || s.Resolved {
		t.Errorf("state after stop = %+v", s)
	}
	if f.indicator.isOn(2) {
		t.Error("indicator 2 still on after stop")
	}
	if st := f.session.Status(); st.CurrentGame != nil {
		t.Errorf("current game = %v, want nil", *st.CurrentGame)
	}
}

func TestStopRhythmClearsNotes(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.session.Start(ModeRhythm); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.session.Stop(ModeRhythm); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if n := f.session.Notes(); len(n) != 0 {
		t.Errorf("notes after stop = %v, want empty", n)
	}
	if f.notifier.last().Type != EventGameStopped {
		t.Errorf("last event = %s, want %s", f.notifier.last().Type, EventGameStopped)
	}
}

func TestRandomCommandSequencesKeepOneGameActive(t *testing.T) {
	f := newFixture(t, nil)
	rng := rand.New(rand.NewPCG(42, 7))
	modes := []Mode{ModeReaction, ModeRhythm}

	for i := 0; i < 500; i++ {
		m := modes[rng.IntN(2)]
		before := f.state()

		switch rng.IntN(3) {
		case 0:
			err := f.session.Start(m)
			if before.Active != errors.Is(err, ErrConflict) {
				t.Fatalf("step %d: Start(%s) with active=%v returned %v", i, m, before.Active, err)
			}
		case 1:
			err := f.session.Stop(m)
			running := before.Active && before.Mode == m
			if running != (err == nil) {
				t.Fatalf("step %d: Stop(%s) with mode=%q active=%v returned %v", i, m, before.Mode, before.Active, err)
			}
		case 2:
			if err := f.session.SelectMode(m); err != nil {
				t.Fatalf("step %d: SelectMode(%s) error = %v", i, m, err)
			}
		}

		s := f.state()
		if s.Active && s.Mode != ModeReaction && s.Mode != ModeRhythm {
			t.Fatalf("step %d: active with mode %q", i, s.Mode)
		}
		if s.Active && s.Mode == ModeReaction && len(s.Notes) != 0 {
			t.Fatalf("step %d: reaction game holds rhythm notes", i)
		}
		if (!s.Active || s.Mode != ModeRhythm) && len(f.session.Notes()) != 0 {
			t.Fatalf("step %d: notes exposed outside a rhythm game", i)
		}
	}
}

func TestShutdownTurnsIndicatorsOff(t *testing.T) {
	f := newFixture(t, nil)
	f.indicator.Set(0, true)
	f.indicator.Set(1, true)

	f.session.Shutdown()

	if f.indicator.anyOn() {
		t.Error("indicator left on after Shutdown")
	}
}
