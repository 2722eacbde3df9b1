package annotate

import (
	"bytes"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addr = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func TestAnnotate(t *testing.T) {
	sig := base58.Encode(bytes.Repeat([]byte{0xff}, 64))
	text := "Sent 1 SOL to " + addr + ".\nSignature: " + sig + "\nAgain: " + addr

	anns := Annotate(text)
	require.Len(t, anns, 2)
	assert.Equal(t, Annotation{Kind: KindAddress, Value: addr, URL: "https://solscan.io/account/" + addr}, anns[0])
	assert.Equal(t, KindTransaction, anns[1].Kind)
	assert.Equal(t, "https://solscan.io/tx/"+sig, anns[1].URL)
}

func TestAnnotateIgnoresNoise(t *testing.T) {
	tests := map[string]string{
		"plain prose":   "Increase Bandwidth, Reduce Latency ⚡",
		"shortened":     "From: 9xQe...VFin",
		"inside url":    "see https://solscan.io/account/" + addr,
		"ethereum":      "0x52908400098527886E0F7030069857D2E4169EE7",
		"long word":     "Supercalifragilisticexpialidociousandthensome",
		"embedded word": "x" + addr + "y",
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Annotate(text))
		})
	}
}

func TestRender(t *testing.T) {
	assert.Equal(t, "gm", Render("gm"))

	out := Render("wallet " + addr)
	assert.Contains(t, out, "🔗 Explorer links:")
	assert.Contains(t, out, "• address 9xQe...VFin: https://solscan.io/account/"+addr)
}
