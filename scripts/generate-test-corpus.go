//go:build ignore

// Package main generates a synthetic bilingual chunk corpus for benchmarking.
// Usage: go run scripts/generate-test-corpus.go -chunks 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cognidex/cognidex/internal/chunk"
)

var (
	numChunks = flag.Int("chunks", 1000, "Number of chunks to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	dupRatio  = flag.Float64("dup-ratio", 0.1, "Fraction of chunks emitted as near-duplicates")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
	perFile   = flag.Int("per-file", 50, "Chunks per corpus file")
)

var (
	topics = []string{
		"staking", "bridging", "governance", "token contract", "wallet setup",
		"validator nodes", "airdrop claims", "liquidity pools", "security audits",
		"roadmap milestones", "treasury reports", "consensus upgrades",
	}
	topicsZH = []string{
		"质押", "跨链桥", "治理", "代币合约", "钱包设置",
		"验证节点", "空投领取", "流动性池", "安全审计",
		"路线图", "国库报告", "共识升级",
	}
	enSentences = []string{
		"The process completes within a few minutes under normal network load.",
		"Fees are denominated in the native token and settle on confirmation.",
		"Always verify the official contract address before signing any transaction.",
		"Rewards accrue daily and unlock after the configured lockup period.",
		"Support channels are listed on the official website and announcement feed.",
		"The upgrade is backwards compatible and requires no user action.",
	}
	zhSentences = []string{
		"正常网络负载下几分钟内即可完成。",
		"手续费以原生代币计价，确认后结算。",
		"签名任何交易前请务必核对官方合约地址。",
		"奖励每日累积，锁仓期结束后解锁。",
		"官方网站和公告频道列出了所有支持渠道。",
		"本次升级向后兼容，用户无需任何操作。",
	}
	types = []chunk.Type{
		chunk.TypeFacts, chunk.TypeHowto, chunk.TypeFAQ,
		chunk.TypePolicy, chunk.TypeTroubleshooting,
	}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d chunks in %s...\n", *numChunks, *outputDir)

	var chunks []*chunk.Chunk
	for i := 0; i < *numChunks; i++ {
		c := generateChunk(rng, i)
		chunks = append(chunks, c)
		if rng.Float64() < *dupRatio {
			chunks = append(chunks, nearDuplicate(c, i))
			i++
		}
	}

	written := 0
	for start := 0; start < len(chunks); start += *perFile {
		end := start + *perFile
		if end > len(chunks) {
			end = len(chunks)
		}
		data, err := yaml.Marshal(chunks[start:end])
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal corpus file: %v\n", err)
			os.Exit(1)
		}
		name := filepath.Join(*outputDir, fmt.Sprintf("corpus_%04d.yaml", start / *perFile))
		if err := os.WriteFile(name, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", name, err)
			os.Exit(1)
		}
		written++
	}

	fmt.Printf("Wrote %d chunks across %d files.\n", len(chunks), written)
}

func generateChunk(rng *rand.Rand, i int) *chunk.Chunk {
	ti := rng.Intn(len(topics))
	lang := chunk.LangEN
	title := fmt.Sprintf("About %s (%d)", topics[ti], i)
	body := paragraph(rng, enSentences, 4+rng.Intn(4))
	if rng.Intn(3) == 0 {
		lang = chunk.LangZH
		title = fmt.Sprintf("%s说明（%d）", topicsZH[ti], i)
		body = paragraph(rng, zhSentences, 4+rng.Intn(4))
	}

	return &chunk.Chunk{
		ID:        fmt.Sprintf("bench-%06d", i),
		SourceID:  fmt.Sprintf("source-%03d", i%200),
		Type:      types[rng.Intn(len(types))],
		Lang:      lang,
		Stability: chunk.StabilityStable,
		Title:     title,
		Body:      body,
		SummaryEN: fmt.Sprintf("Synthetic chunk about %s.", topics[ti]),
		SummaryZH: fmt.Sprintf("关于%s的合成条目。", topicsZH[ti]),
	}
}

// nearDuplicate copies a chunk with light punctuation noise so the dedup
// stage has realistic near-identical pairs to find.
func nearDuplicate(c *chunk.Chunk, i int) *chunk.Chunk {
	dup := *c
	dup.ID = fmt.Sprintf("bench-%06d-dup", i)
	dup.Body = c.Body + " "
	dup.Title = c.Title + "."
	return &dup
}

func paragraph(rng *rand.Rand, pool []string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			out += " "
		}
		out += pool[rng.Intn(len(pool))]
	}
	return out
}
