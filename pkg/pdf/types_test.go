package pdf

import "testing"

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"full date with zone", "D:20240315143012+01'00'", "15/03/2024 14:30"},
		{"UTC", "D:20231231235959Z", "31/12/2023 23:59"},
		{"hour without minute", "D:2024031509", "15/03/2024 09:00"},
		{"date only", "D:20240315", "D:20240315"},
		{"no prefix", "20240315143012", "20240315143012"},
		{"free text", "March 2024", "March 2024"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.in); got != tt.want {
				t.Errorf("FormatDate(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
