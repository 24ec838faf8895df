package ezpdf

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// interceptNavigation pauses every request of page and continues it,
// merging headers into main-frame document requests only. The returned
// release disables interception and waits for in-flight handlers.
func interceptNavigation(page *rod.Page, headers map[string]string) (func() error, error) {
	err := proto.FetchEnable{
		Patterns: []*proto.FetchRequestPattern{{URLPattern: "*"}},
	}.Call(page)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	var handlers sync.WaitGroup

	wait := page.Context(ctx).EachEvent(func(e *proto.FetchRequestPaused) {
		handlers.Add(1)
		go func() {
			defer handlers.Done()
			req := proto.FetchContinueRequest{RequestID: e.RequestID}
			if isNavigationRequest(e.ResourceType, e.FrameID, page.FrameID) {
				req.Headers = mergeHeaders(requestHeaders(e.Request), headers)
			}
			// Errors here mean the page went away; release reports that.
			_ = req.Call(page)
		}()
	})

	listening := make(chan struct{})
	go func() {
		defer close(listening)
		wait()
	}()

	var once sync.Once
	var releaseErr error
	release := func() error {
		once.Do(func() {
			disableErr := proto.FetchDisable{}.Call(page)
			cancel()
			<-listening
			handlers.Wait()
			releaseErr = disableErr
		})
		return releaseErr
	}
	return release, nil
}

// isNavigationRequest reports whether a paused request loads the page's
// main document (including redirects of it).
func isNavigationRequest(resourceType proto.NetworkResourceType, frameID, mainFrame proto.PageFrameID) bool {
	return resourceType == proto.NetworkResourceTypeDocument && frameID == mainFrame
}

func requestHeaders(req *proto.NetworkRequest) map[string]string {
	if req == nil {
		return nil
	}
	out := make(map[string]string, len(req.Headers))
	for name, value := range req.Headers {
		out[name] = value.Str()
	}
	return out
}

// mergeHeaders overlays extra onto original. Header names compare
// case-insensitively and extra wins. Output is sorted by name.
func mergeHeaders(original, extra map[string]string) []*proto.FetchHeaderEntry {
	merged := make(map[string]*proto.FetchHeaderEntry, len(original)+len(extra))
	for name, value := range original {
		merged[strings.ToLower(name)] = &proto.FetchHeaderEntry{Name: name, Value: value}
	}
	for name, value := range extra {
		merged[strings.ToLower(name)] = &proto.FetchHeaderEntry{Name: name, Value: value}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]*proto.FetchHeaderEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, merged[k])
	}
	return entries
}
