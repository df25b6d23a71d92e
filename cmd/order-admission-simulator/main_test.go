package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/order-admission-simulator/internal/pricing"
)

func TestQuoteCommand(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no discount", []string{"--price", "100", "--quantity", "3", "--count", "10"},
			"The customer details are added.\n\nThe price is 300. Please Pay.\n"},
		{"ten percent", []string{"--price", "1000", "--quantity", "4", "--count", "10"},
			"The customer details are added.\n\nThe price is 4000.\n\nDiscounted Price is 400.0.\n\nPlease Pay. 3600.0\n"},
		{"unknown count", []string{"--price", "1000"},
			pricing.OutOfStockMessage + "\n"},
		{"unavailable", []string{"--price", "1000", "--count", "5", "--available", "false"},
			pricing.OutOfStockMessage + "\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := quoteCommand()
			cmd.SetOut(&out)
			cmd.SetArgs(tc.args)
			require.NoError(t, cmd.Execute())
			assert.Equal(t, tc.want, out.String())
		})
	}
}

func TestQuoteCommandRejectsBadFlags(t *testing.T) {
	cmd := quoteCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--price", "10", "--available", "maybe"})
	assert.ErrorContains(t, cmd.Execute(), "--available")

	cmd = quoteCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--price", "10", "--count", "lots"})
	assert.ErrorContains(t, cmd.Execute(), "--count")
}

func TestSimulateCommand(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	body := "products:\n  - {id: 1, available: true, count: 1, price: 10}\n" +
		"orders:\n  - {customer_id: 1, customer_name: ana, order: {product_id: 1, quantity: 1}}\n" +
		"  - {customer_id: 2, customer_name: bo, order: {product_id: 7, quantity: 1}}\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	var out bytes.Buffer
	cmd := simulateCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--scenario", path})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	var rep struct {
		Submitted  int                          `json:"submitted"`
		Outcomes   map[string]int               `json:"outcomes"`
		Backorders map[string][]json.RawMessage `json:"backorders"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 2, rep.Submitted)
	assert.Equal(t, 1, rep.Outcomes["fulfilled"])
	assert.Equal(t, 1, rep.Outcomes["product_missing"])
	assert.Len(t, rep.Backorders["7"], 1)
}

func TestSimulateCommandRequiresScenario(t *testing.T) {
	cmd := simulateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	assert.Error(t, cmd.Execute())
}
