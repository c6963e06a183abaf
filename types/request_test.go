package types //nolint:revive // types is a valid package name

import (
	"reflect"
	"strings"
	"testing"
)

func TestScanRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ScanRequest
		wantErr string
	}{
		{
			name: "test pool",
			req:  ScanRequest{Date: "2024-01-02", Strategies: []string{"ma_cross"}, PoolType: PoolTest},
		},
		{
			name: "custom pool",
			req: ScanRequest{
				Date: "2024-01-02", Strategies: []string{"ma_cross"},
				PoolType: PoolCustom, CustomPool: []string{"600000"},
			},
		},
		{
			name:    "bad date",
			req:     ScanRequest{Date: "2024/01/02", Strategies: []string{"ma_cross"}, PoolType: PoolTest},
			wantErr: "date must be YYYY-MM-DD",
		},
		{
			name:    "no strategies",
			req:     ScanRequest{Date: "2024-01-02", PoolType: PoolTest},
			wantErr: "at least one strategy",
		},
		{
			name:    "blank strategy",
			req:     ScanRequest{Date: "2024-01-02", Strategies: []string{" "}, PoolType: PoolTest},
			wantErr: "strategy 0 is empty",
		},
		{
			name:    "unknown pool",
			req:     ScanRequest{Date: "2024-01-02", Strategies: []string{"ma_cross"}, PoolType: "sp500"},
			wantErr: "invalid pool_type",
		},
		{
			name:    "custom without codes",
			req:     ScanRequest{Date: "2024-01-02", Strategies: []string{"ma_cross"}, PoolType: PoolCustom},
			wantErr: "custom_pool is required",
		},
		{
			name: "codes without custom",
			req: ScanRequest{
				Date: "2024-01-02", Strategies: []string{"ma_cross"},
				PoolType: PoolHS300, CustomPool: []string{"600000"},
			},
			wantErr: "only allowed when pool_type is custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseCustomPool(t *testing.T) {
	got := ParseCustomPool(" 600000, 000001\n\n300750 ,,")
	want := []string{"600000", "000001", "300750"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseCustomPool = %v, want %v", got, want)
	}
	if ParseCustomPool(" , \n") != nil {
		t.Error("ParseCustomPool of separators only should be nil")
	}
}

func TestChatRequest_Validate(t *testing.T) {
	if err := (&ChatRequest{Message: "hi"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (&ChatRequest{Message: "  "}).Validate(); err == nil {
		t.Error("expected error for blank message")
	}
	if err := (&ChatRequest{Message: "hi", Context: "poetry"}).Validate(); err == nil {
		t.Error("expected error for unknown context")
	}
}

func TestProgressState_Clamped(t *testing.T) {
	tests := []struct {
		p           ProgressState
		wantClamped int
		wantPercent float64
	}{
		{ProgressState{Current: 1, Total: 2, TotalKnown: true}, 1, 50},
		{ProgressState{Current: 5, Total: 2, TotalKnown: true}, 2, 100},
		{ProgressState{Current: -1, Total: 2, TotalKnown: true}, 0, 0},
		{ProgressState{Current: 7}, 7, 0},
		{ProgressState{Current: 0, Total: 0, TotalKnown: true}, 0, 0},
	}
	for _, tt := range tests {
		if got := tt.p.Clamped(); got != tt.wantClamped {
			t.Errorf("%+v.Clamped() = %d, want %d", tt.p, got, tt.wantClamped)
		}
		if got := tt.p.Percent(); got != tt.wantPercent {
			t.Errorf("%+v.Percent() = %v, want %v", tt.p, got, tt.wantPercent)
		}
	}
}
