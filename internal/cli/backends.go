package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/xaionaro-go/audiorender/pkg/audio/playback"
	"github.com/xaionaro-go/audiorender/pkg/audio/registry"
)

// ListBackends prints the registered backends in the order they are tried.
// With probe set every backend is opened once to report its mix format.
func ListBackends(ctx context.Context, w io.Writer, probe bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if isTerminal(w) {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleDefault)
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	header := table.Row{"Backend", "Priority"}
	if probe {
		header = append(header, "Mix format", "Buffer", "Status")
	}
	t.AppendHeader(header)

	for _, entry := range registry.Entries() {
		row := table.Row{entry.Name(), entry.Priority}
		if probe {
			row = append(row, probeBackend(ctx, entry.SubsystemFactory)...)
		}
		t.AppendRow(row)
	}
	t.Render()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func probeBackend(ctx context.Context, factory registry.SubsystemFactory) []any {
	c, err := playback.NewFromFactory(ctx, factory)
	if err != nil {
		return []any{"", "", err.Error()}
	}
	defer c.Close()
	return []any{
		c.WaveFormat().String(),
		fmt.Sprintf("%d frames", c.BufferFrameCount()),
		"ok",
	}
}
