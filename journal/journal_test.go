package journal

import (
	"testing"

	"github.com/xraph/treasury/id"
	"github.com/xraph/treasury/types"
)

func TestConstructors(t *testing.T) {
	ledger := id.NewLedgerID()

	e := Mint(ledger, "minter", "alice", types.Units(5), types.Units(5))
	if e.Kind != KindMint {
		t.Errorf("Kind = %s, want %s", e.Kind, KindMint)
	}
	if e.ID.IsNil() {
		t.Error("entry ID not assigned")
	}
	if e.Ledger != ledger {
		t.Errorf("Ledger = %s, want %s", e.Ledger, ledger)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not assigned")
	}
	if e.Actor != "minter" || e.To != "alice" {
		t.Errorf("Actor/To = %s/%s, want minter/alice", e.Actor, e.To)
	}

	tf := TransferFrom(ledger, "spender", "owner", "dest", types.Units(1), types.Units(9))
	if tf.Kind != KindTransfer {
		t.Errorf("TransferFrom Kind = %s, want %s", tf.Kind, KindTransfer)
	}
	if tf.Actor != "spender" || tf.From != "owner" || tf.To != "dest" {
		t.Errorf("TransferFrom Actor/From/To = %s/%s/%s", tf.Actor, tf.From, tf.To)
	}

	g := RoleGrant(ledger, "admin", types.RoleMinter, "alice")
	if g.Kind != KindGrant || g.Role != types.RoleMinter || g.To != "alice" {
		t.Errorf("RoleGrant fields = %s/%s/%s", g.Kind, g.Role, g.To)
	}
}

func TestTouched(t *testing.T) {
	ledger := id.NewLedgerID()

	tests := []struct {
		name  string
		entry *Entry
		want  []types.Address
	}{
		{
			name:  "mint",
			entry: Mint(ledger, "m", "alice", types.Units(1), types.Units(1)),
			want:  []types.Address{"alice"},
		},
		{
			name: "batch dedupes",
			entry: BatchMint(ledger, "m",
				[]types.Address{"a", "b", "a"},
				[]types.Amount{types.Units(1), types.Units(1), types.Units(1)},
				types.Units(3), types.Units(3)),
			want: []types.Address{"a", "b"},
		},
		{
			name:  "transfer",
			entry: Transfer(ledger, "a", "b", types.Units(1), types.Units(2)),
			want:  []types.Address{"a", "b"},
		},
		{
			name:  "self transfer",
			entry: Transfer(ledger, "a", "a", types.Units(1), types.Units(2)),
			want:  []types.Address{"a"},
		},
		{
			name:  "burn",
			entry: Burn(ledger, "a", types.Units(1), types.Units(1)),
			want:  []types.Address{"a"},
		},
		{
			name:  "approval touches nothing",
			entry: Approval(ledger, "a", "b", types.Units(1)),
			want:  nil,
		},
		{
			name:  "pause touches nothing",
			entry: Pause(ledger, "p"),
			want:  nil,
		},
		{
			name:  "genesis without initial mint",
			entry: Genesis(ledger, "deployer", "", types.Zero(), types.Zero()),
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.entry.Touched()
			if len(got) != len(tt.want) {
				t.Fatalf("Touched() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Touched() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestMovesBalances(t *testing.T) {
	ledger := id.NewLedgerID()

	if !Mint(ledger, "m", "a", types.Units(1), types.Units(1)).MovesBalances() {
		t.Error("mint should move balances")
	}
	if Pause(ledger, "p").MovesBalances() {
		t.Error("pause should not move balances")
	}
	if Approval(ledger, "a", "b", types.Units(1)).MovesBalances() {
		t.Error("approval should not move balances")
	}
}
