// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// newWalkBar renders a single progress bar over a whole-repository object
// walk, grounded on the teacher's mpb setup for transfer progress
// (pkg/zeta/transfer.go), scaled down to one bar since verify-pack and
// ls-objects walk their repository sequentially rather than downloading
// many objects concurrently. total is the count known up front (the sum
// of each pack's header object count); loose objects, whose count isn't
// known until the walk finishes, and verify-pack's second pass over the
// packed entries push the bar past its initial total until finishWalkBar
// corrects it.
func newWalkBar(quiet bool, label string, total int64) (*mpb.Progress, *mpb.Bar) {
	if quiet {
		return nil, nil
	}
	p := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithAutoRefresh())
	bar := p.New(total,
		mpb.BarStyle().Filler("#").Padding(" "),
		mpb.PrependDecorators(decor.Name(label)),
		mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
	)
	return p, bar
}

// incWalkBar advances bar by one object; a no-op when progress is
// disabled (bar is nil).
func incWalkBar(bar *mpb.Bar) {
	if bar != nil {
		bar.Increment()
	}
}

// finishWalkBar corrects the bar's total to the final object count and
// waits for the renderer to flush, a no-op when progress is disabled.
func finishWalkBar(p *mpb.Progress, bar *mpb.Bar, count int64) {
	if bar == nil {
		return
	}
	bar.SetTotal(count, true)
	p.Wait()
}
