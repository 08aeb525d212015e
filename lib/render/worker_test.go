// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/queue"
	"github.com/folio-foundation/folio/lib/testutil"
)

// fakeDocument is an in-memory Document that records render order and
// can be configured to fail.
type fakeDocument struct {
	mu         sync.Mutex
	count      int
	renderErr  error
	reloadErr  error
	matches    []int
	renderedAt []int // page indices in render order
	reloads    int
}

func (d *fakeDocument) PageCount() (int, error) {
	return d.count, nil
}

func (d *fakeDocument) RenderPage(page, width, height int) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.renderErr != nil {
		return nil, d.renderErr
	}
	d.renderedAt = append(d.renderedAt, page)
	return image.NewRGBA(image.Rect(0, 0, width, height)), nil
}

func (d *fakeDocument) Search(term string) ([]int, error) {
	return d.matches, nil
}

func (d *fakeDocument) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reloadErr != nil {
		return d.reloadErr
	}
	d.reloads++
	return nil
}

func (d *fakeDocument) renderOrder() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.renderedAt...)
}

var testConfig = Config{
	Window: geometry.WindowSize{Columns: 80, Rows: 24, Width: 640, Height: 336},
	Area:   geometry.Rect{X: 0, Y: 0, Width: 78, Height: 20},
}

func startWorker(t *testing.T, document Document, config Config) (*queue.Queue[Result], *queue.Queue[Notif]) {
	t.Helper()
	results := queue.New[Result]()
	notifs := queue.New[Notif]()
	Start(document, results, notifs.Out(), config)
	return results, notifs
}

func nextInfo(t *testing.T, results *queue.Queue[Result]) Info {
	t.Helper()
	result := testutil.RequireReceive(t, results.Out(), 5*time.Second, "render result")
	if result.Err != nil {
		t.Fatalf("unexpected worker error: %v", result.Err)
	}
	return result.Info
}

func TestNumPagesAnnouncedFirst(t *testing.T) {
	document := &fakeDocument{count: 4}
	results, notifs := startWorker(t, document, testConfig)
	defer notifs.Close()

	info := nextInfo(t, results)
	numPages, ok := info.(NumPagesInfo)
	if !ok {
		t.Fatalf("first result = %T, want NumPagesInfo", info)
	}
	if numPages.Count != 4 {
		t.Errorf("Count = %d, want 4", numPages.Count)
	}
}

func TestAllPagesRendered(t *testing.T) {
	document := &fakeDocument{count: 3}
	results, notifs := startWorker(t, document, testConfig)
	defer notifs.Close()

	nextInfo(t, results) // NumPages

	seen := make(map[int]bool)
	for len(seen) < 3 {
		info := nextInfo(t, results)
		page, ok := info.(PageInfo)
		if !ok {
			t.Fatalf("result = %T, want PageInfo", info)
		}
		if seen[page.Raster.Page] {
			t.Fatalf("page %d delivered twice", page.Raster.Page)
		}
		if page.Raster.Image == nil {
			t.Fatalf("page %d has nil image", page.Raster.Page)
		}
		seen[page.Raster.Page] = true
	}
}

func TestFanOutFromJumpTarget(t *testing.T) {
	document := &fakeDocument{count: 6}

	results := queue.New[Result]()
	notifs := queue.New[Notif]()
	defer notifs.Close()

	// Queue the jump before the worker starts so the retarget is
	// applied before any page is rendered.
	notifs.Send(JumpNotif{Page: 3})
	Start(document, results, notifs.Out(), testConfig)

	nextInfo(t, results)
	for i := 0; i < 6; i++ {
		nextInfo(t, results)
	}

	order := document.renderOrder()
	want := []int{3, 4, 2, 5, 1, 0}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("render order = %v, want %v", order, want)
		}
	}
}

func TestSearchReportsMatches(t *testing.T) {
	document := &fakeDocument{count: 2, matches: []int{1}}
	results, notifs := startWorker(t, document, testConfig)
	defer notifs.Close()

	nextInfo(t, results)
	notifs.Send(SearchNotif{Term: "needle"})

	for {
		info := nextInfo(t, results)
		found, ok := info.(SearchResultsInfo)
		if !ok {
			continue
		}
		if found.Term != "needle" {
			t.Errorf("Term = %q, want %q", found.Term, "needle")
		}
		if len(found.Pages) != 1 || found.Pages[0] != 1 {
			t.Errorf("Pages = %v, want [1]", found.Pages)
		}
		return
	}
}

func TestReloadRedeliversPages(t *testing.T) {
	document := &fakeDocument{count: 2}
	results, notifs := startWorker(t, document, testConfig)
	defer notifs.Close()

	nextInfo(t, results)
	pages := 0
	for pages < 2 {
		if _, ok := nextInfo(t, results).(PageInfo); ok {
			pages++
		}
	}

	notifs.Send(ReloadNotif{})

	sawReloaded := false
	pages = 0
	for pages < 2 {
		switch nextInfo(t, results).(type) {
		case ReloadedInfo:
			sawReloaded = true
		case PageInfo:
			pages++
		}
	}
	if !sawReloaded {
		t.Error("no ReloadedInfo delivered after reload")
	}
}

func TestRenderErrorIsFatal(t *testing.T) {
	renderFailure := errors.New("decode failure")
	document := &fakeDocument{count: 2, renderErr: renderFailure}
	results, notifs := startWorker(t, document, testConfig)
	defer notifs.Close()

	nextInfo(t, results) // NumPages

	result := testutil.RequireReceive(t, results.Out(), 5*time.Second, "fatal result")
	if result.Err == nil {
		t.Fatal("expected a fatal error result")
	}
	if !errors.Is(result.Err, renderFailure) {
		t.Errorf("error %v does not wrap the render failure", result.Err)
	}

	// The stream ends after the fatal error.
	if _, open := <-results.Out(); open {
		t.Error("result stream still open after fatal error")
	}
}

func TestCloseNotifsShutsDownWorker(t *testing.T) {
	document := &fakeDocument{count: 1}
	results, notifs := startWorker(t, document, testConfig)

	nextInfo(t, results)
	nextInfo(t, results) // the single page

	notifs.Close()

	testutil.RequireStreamEnd(t, results.Out(), 5*time.Second, "render stream end")
}
