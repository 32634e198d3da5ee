package schedule

import "testing"

func TestCompileVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		cron string
		desc string
	}{
		{name: "weekdays 12h", text: "every weekday at 8:00 AM", cron: "0 8 * * 1-5", desc: "Weekdays at 8:00 AM"},
		{name: "weekdays hour only", text: "weekdays at 8 am", cron: "0 8 * * 1-5", desc: "Weekdays at 8:00 AM"},
		{name: "single day", text: "Tuesday at 6:30 PM", cron: "30 18 * * 2", desc: "Tuesday at 6:30 PM"},
		{name: "single day abbreviated", text: "tue at 18:30", cron: "30 18 * * 2", desc: "Tuesday at 6:30 PM"},
		{name: "explicit list", text: "Monday, Wednesday, Friday at 7:00 AM", cron: "0 7 * * 1,3,5", desc: "Monday, Wednesday and Friday at 7:00 AM"},
		{name: "pair", text: "monday and thursday at 10:30 pm", cron: "30 22 * * 1,4", desc: "Monday and Thursday at 10:30 PM"},
		{name: "range", text: "Monday through Friday at 9 PM", cron: "0 21 * * 1-5", desc: "Weekdays at 9:00 PM"},
		{name: "dash range", text: "mon-thu at 06:15", cron: "15 6 * * 1-4", desc: "Monday, Tuesday, Wednesday and Thursday at 6:15 AM"},
		{name: "weekends", text: "weekends at noon", cron: "0 12 * * 0,6", desc: "Weekends at 12:00 PM"},
		{name: "every day", text: "every day at midnight", cron: "0 0 * * *", desc: "Every day at 12:00 AM"},
		{name: "daily 24h", text: "daily at 22:45", cron: "45 22 * * *", desc: "Every day at 10:45 PM"},
		{name: "list beats group", text: "weekdays monday and wednesday at 8:00", cron: "0 8 * * 1,3", desc: "Monday and Wednesday at 8:00 AM"},
		{name: "wrapping range", text: "friday through monday at 5 pm", cron: "0 17 * * 0,1,5,6", desc: "Monday, Friday, Saturday and Sunday at 5:00 PM"},
		{name: "noon pm boundary", text: "sunday at 12 pm", cron: "0 12 * * 0", desc: "Sunday at 12:00 PM"},
		{name: "midnight am boundary", text: "sunday at 12 am", cron: "0 0 * * 0", desc: "Sunday at 12:00 AM"},
		{name: "dotted meridiem", text: "saturday at 9:05 p.m.", cron: "5 21 * * 6", desc: "Saturday at 9:05 PM"},
		{name: "daypart redundant with meridiem", text: "saturday at 2 pm in the afternoon", cron: "0 14 * * 6", desc: "Saturday at 2:00 PM"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compile(tt.text)
			if err != nil {
				t.Fatalf("Compile(%q) error: %v", tt.text, err)
			}
			if got.Cron != tt.cron {
				t.Fatalf("Cron = %q, want %q", got.Cron, tt.cron)
			}
			if got.Description != tt.desc {
				t.Fatalf("Description = %q, want %q", got.Description, tt.desc)
			}
		})
	}
}

func TestCompileDeterministic(t *testing.T) {
	t.Parallel()
	const text = "every weekday at 8:00 AM for 90 minutes"
	first, err := Compile(text)
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := Compile(text)
		if err != nil {
			t.Fatalf("Compile error on repeat %d: %v", i, err)
		}
		if got != first {
			t.Fatalf("Compile not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestCompileDurationHint(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want int
	}{
		{"weekdays at 8:00 AM for 90 minutes", 90},
		{"weekdays at 8:00 AM for 2 hours", 120},
		{"weekdays at 8:00 AM", 0},
	}
	for _, tt := range tests {
		got, err := Compile(tt.text)
		if err != nil {
			t.Fatalf("Compile(%q) error: %v", tt.text, err)
		}
		if got.DurationMinutes != tt.want {
			t.Fatalf("DurationMinutes = %d, want %d", got.DurationMinutes, tt.want)
		}
	}
}

func TestCompileRejectsBadInput(t *testing.T) {
	t.Parallel()
	bad := []string{
		"",
		"at 8:00 AM",                // no days
		"monday",                    // no time
		"monday at 25:00",           // hour out of range
		"monday at 13 pm",           // 12h hour out of range
		"monday at 8:75 am",         // minute out of range
		"sometime, somewhere",       // nothing recognizable
		"monday at 8 for 0 minutes", // zero duration hint
		"monday at 8 for 26 hours",  // hint beyond a day
		"saturday at 2 in the afternoon",    // daypart word without am/pm
		"saturday at 2:30 in the afternoon", // ditto, with minutes
		"saturdays in the afternoon",        // daypart word is not a time
	}
	for _, text := range bad {
		if _, err := Compile(text); err == nil {
			t.Fatalf("Compile(%q) = nil error, want reason", text)
		}
	}
}
