package selector

import (
	"errors"
	"strings"
	"testing"
)

func TestParseLogfile(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    CreationDate
		wantErr error
	}{
		{
			name: "marker after header",
			body: "TankID: t001\nProjectID: MC_s1_tr1\nMasterRecordInitialStart: 2019-07-12 11:00:01.123456\nMasterRecordInitialStart: 2021-01-01 00:00:00.000000\n",
			want: CreationDate{Year: 2019, Month: 7},
		},
		{
			name: "no fractional seconds",
			body: "MasterRecordInitialStart: 2020-11-03 08:15:00\n",
			want: CreationDate{Year: 2020, Month: 11},
		},
		{
			name:    "no marker",
			body:    "TankID: t001\n",
			wantErr: ErrNoMarker,
		},
		{
			name:    "empty file",
			body:    "",
			wantErr: ErrNoMarker,
		},
		{
			name:    "indented marker is ignored",
			body:    "  MasterRecordInitialStart: 2018-01-01 00:00:00.0\n",
			wantErr: ErrNoMarker,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogfile(strings.NewReader(tt.body))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseLogfile_BadTimestamp(t *testing.T) {
	_, err := ParseLogfile(strings.NewReader("MasterRecordInitialStart: yesterday\n"))
	if err == nil || errors.Is(err, ErrNoMarker) {
		t.Fatalf("want a parse error, got %v", err)
	}
}

func TestCreationDate_Passes(t *testing.T) {
	tests := []struct {
		date CreationDate
		y, m int
		want bool
	}{
		{CreationDate{2019, 7}, 2019, 1, true},
		{CreationDate{2019, 1}, 2019, 1, true},
		{CreationDate{2018, 12}, 2019, 1, false},
		// Month is checked on its own: a later year with an earlier month fails.
		{CreationDate{2021, 2}, 2019, 6, false},
		{CreationDate{}, 2019, 1, false},
		{CreationDate{}, 0, 0, true},
	}
	for _, tt := range tests {
		if got := tt.date.Passes(tt.y, tt.m); got != tt.want {
			t.Errorf("%v.Passes(%d, %d) = %v, want %v", tt.date, tt.y, tt.m, got, tt.want)
		}
	}
}

func TestCreationDate_String(t *testing.T) {
	if got := (CreationDate{2019, 7}).String(); got != "2019-07" {
		t.Errorf("String() = %q", got)
	}
	if got := (CreationDate{}).String(); got != "unknown" {
		t.Errorf("zero String() = %q", got)
	}
}
