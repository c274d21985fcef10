package game

import "testing"

func fixtureTime(t *testing.T) *TimeConfig {
	t.Helper()
	return &loadFixture(t).Time
}

func TestSlotFor(t *testing.T) {
	tc := fixtureTime(t)
	cases := []struct {
		hhmm string
		want string
	}{
		{"06:00", "morning"},
		{"11:59", "morning"},
		{"12:00", "afternoon"},
		{"18:00", "evening"},
		{"21:59", "evening"},
		{"22:00", "night"},
		{"23:59", "night"},
		{"00:00", "night"}, // wraps midnight
		{"05:59", "night"},
	}
	for _, c := range cases {
		m, err := ParseHHMM(c.hhmm)
		if err != nil {
			t.Fatal(err)
		}
		if got := tc.SlotFor(m); got != c.want {
			t.Errorf("SlotFor(%s) = %q, want %q", c.hhmm, got, c.want)
		}
	}
}

func TestSlotEnd(t *testing.T) {
	tc := fixtureTime(t)

	end, ok := tc.SlotEnd(8 * 60)
	if !ok || end != 12*60 {
		t.Errorf("SlotEnd(08:00) = %d,%v, want 720,true", end, ok)
	}
	end, ok = tc.SlotEnd(23 * 60)
	if !ok || end != 6*60 {
		t.Errorf("SlotEnd(23:00) = %d,%v, want 360,true", end, ok)
	}
}

func TestSlotLength(t *testing.T) {
	tc := fixtureTime(t)

	if got := tc.SlotLength("morning"); got != 360 {
		t.Errorf("morning length = %d, want 360", got)
	}
	if got := tc.SlotLength("night"); got != 480 {
		t.Errorf("night length = %d, want 480 (wraps midnight)", got)
	}
	if got := tc.SlotLength("nap"); got != 0 {
		t.Errorf("unknown slot length = %d, want 0", got)
	}
}

func TestWeekday(t *testing.T) {
	tc := fixtureTime(t)

	cases := []struct {
		day  int
		want string
	}{
		{1, "saturday"},
		{2, "sunday"},
		{3, "monday"},
		{7, "friday"},
		{8, "saturday"},
	}
	for _, c := range cases {
		if got := tc.Weekday(c.day); got != c.want {
			t.Errorf("Weekday(%d) = %q, want %q", c.day, got, c.want)
		}
	}
}

func TestParseFormatHHMM(t *testing.T) {
	m, err := ParseHHMM("08:30")
	if err != nil || m != 510 {
		t.Errorf("ParseHHMM(08:30) = %d, %v", m, err)
	}
	for _, bad := range []string{"8", "25:00", "12:60", "ab:cd", ""} {
		if _, err := ParseHHMM(bad); err == nil {
			t.Errorf("ParseHHMM(%q) should fail", bad)
		}
	}
	if got := FormatHHMM(510); got != "08:30" {
		t.Errorf("FormatHHMM(510) = %q", got)
	}
	if got := FormatHHMM(1500); got != "01:00" {
		t.Errorf("FormatHHMM(1500) = %q (wrap)", got)
	}
	if got := FormatHHMM(-60); got != "23:00" {
		t.Errorf("FormatHHMM(-60) = %q (negative wrap)", got)
	}
}

func TestDefaultMinutes(t *testing.T) {
	tc := fixtureTime(t)

	if got := tc.DefaultMinutes("say"); got != 5 {
		t.Errorf("say = %d, want 5", got)
	}
	if got := tc.DefaultMinutes("swim"); got != 10 {
		t.Errorf("unknown kind = %d, want default 10", got)
	}
	if got := tc.CapPerVisit(); got != 60 {
		t.Errorf("cap_per_visit = %d, want 60", got)
	}
}
