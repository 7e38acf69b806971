package enums

import "testing"

func TestParseUserRole(t *testing.T) {
	role, err := ParseUserRole(" Player ")
	if err != nil {
		t.Fatalf("parse player: %v", err)
	}
	if role != UserRolePlayer {
		t.Fatalf("expected player, got %s", role)
	}
	if _, err := ParseUserRole("owner"); err == nil {
		t.Fatalf("expected unknown role to fail")
	}
	if UserRole("owner").IsValid() {
		t.Fatalf("owner should not be valid")
	}
}

func TestPaymentStatusHelpers(t *testing.T) {
	tests := []struct {
		status   PaymentStatus
		terminal bool
		blocks   bool
	}{
		{status: PaymentStatusPending, terminal: false, blocks: true},
		{status: PaymentStatusSuccess, terminal: true, blocks: true},
		{status: PaymentStatusFailed, terminal: true, blocks: false},
	}
	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Fatalf("%s: expected terminal=%v got %v", tt.status, tt.terminal, got)
		}
		if got := tt.status.BlocksRepurchase(); got != tt.blocks {
			t.Fatalf("%s: expected blocks=%v got %v", tt.status, tt.blocks, got)
		}
	}
	if _, err := ParsePaymentStatus("settled"); err == nil {
		t.Fatalf("expected unknown status to fail")
	}
}
