package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepairTablesInsertsMissingSeparator(t *testing.T) {
	got := RepairTables("|A|B|\n|1|2|")

	assert.Equal(t, "|A|B|\n|---|---|\n|1|2|", got)
}

func TestRepairTablesKeepsValidTable(t *testing.T) {
	in := "|A|B|\n|---|---|\n|1|2|"

	assert.Equal(t, in, RepairTables(in))
}

func TestRepairTablesKeepsAlignedSeparator(t *testing.T) {
	in := "| A | B |\n|:---|---:|\n| 1 | 2 |"

	assert.Equal(t, in, RepairTables(in))
}

func TestRepairTablesAddsMissingPipes(t *testing.T) {
	got := RepairTables("A|B\n1|2")

	assert.Equal(t, "|A|B|\n|---|---|\n|1|2|", got)
}

func TestRepairTablesLeavesProseAlone(t *testing.T) {
	in := "Your available margin is ₹50,000.\n\nNothing else to report."

	assert.Equal(t, in, RepairTables(in))
}

func TestRepairTablesSingleRowIsNotATable(t *testing.T) {
	in := "either this | or that"

	assert.Equal(t, in, RepairTables(in))
}

func TestRepairTablesHandlesSurroundingText(t *testing.T) {
	in := "## Funds\n\n|Category|Amount|\n|Cash|808.18|\n\nDone."
	want := "## Funds\n\n|Category|Amount|\n|---|---|\n|Cash|808.18|\n\nDone."

	assert.Equal(t, want, RepairTables(in))
}

func TestRepairTablesWiderTable(t *testing.T) {
	got := RepairTables("|Symbol|Qty|P&L|\n|SBIN|5|39.00|\n|TCS|2|-4.10|")

	assert.Equal(t, "|Symbol|Qty|P&L|\n|---|---|---|\n|SBIN|5|39.00|\n|TCS|2|-4.10|", got)
}
