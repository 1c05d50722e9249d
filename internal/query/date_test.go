package query

import (
	"testing"
	"time"
)

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"midnight", time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), `2020\-01\-01T00:00:00`},
		{"seconds kept, nanos dropped", time.Date(2023, time.May, 17, 9, 8, 7, 999, time.UTC), `2023\-05\-17T09:08:07`},
		{"epoch matches sentinel", time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC), ZeroDate},
		{"far future matches sentinel", time.Date(3000, time.December, 31, 0, 0, 0, 0, time.UTC), FutureDate},
		{"own location", time.Date(2020, time.June, 1, 23, 30, 0, 0, time.FixedZone("X", -5*3600)), `2020\-06\-01T23:30:00`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDate(tt.in); got != tt.want {
				t.Errorf("FormatDate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"empty", "", time.Time{}, false},
		{"blank", "   ", time.Time{}, false},
		{"date only", "2020-12-31", time.Date(2020, time.December, 31, 0, 0, 0, 0, time.UTC), false},
		{"local datetime", "2020-01-01T10:11:12", time.Date(2020, time.January, 1, 10, 11, 12, 0, time.UTC), false},
		{"rfc3339", "2020-01-01T10:11:12Z", time.Date(2020, time.January, 1, 10, 11, 12, 0, time.UTC), false},
		{"garbage", "yesterday", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDate_OffsetPreserved(t *testing.T) {
	got, err := ParseDate("2020-01-01T10:00:00+02:00")
	if err != nil {
		t.Fatal(err)
	}
	if FormatDate(got) != `2020\-01\-01T10:00:00` {
		t.Errorf("FormatDate(ParseDate(...)) = %q", FormatDate(got))
	}
}
