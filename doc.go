// Package voicerelay implements a multi-session relay between browser clients
// and the Azure Voice Live realtime API.
//
// The relay owns one outbound WebSocket per session, translates the upstream
// event stream into a compact client-facing event stream, reassembles audio
// deltas into playable WAV clips, and keeps a labeled conversation history per
// session. Sessions are created and reclaimed through a SessionManager that
// sweeps idle sessions on a timer.
//
// Key Features:
//   - Per-session upstream WebSocket lifecycle (connect, configure, disconnect)
//   - Event translation with strict arrival ordering
//   - Audio delta reassembly and WAV container encoding
//   - Conversation history bookkeeping keyed by session
//   - Idle-session expiry with an on-demand administrative sweep
//
// Basic Usage:
//
//	relay, err := voicerelay.New(voicerelay.Config{
//		Resource:   "your-resource",
//		Model:      "gpt-4o",
//		APIVersion: "2025-05-01-preview",
//		Credential: voicerelay.APIKey("your-api-key"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer relay.Close()
//
//	id := relay.Sessions().CreateSession()
//	if err := relay.Connect(ctx, id); err != nil {
//		log.Fatal(err)
//	}
//	events, _ := relay.Stream(ctx, id)
//	_ = relay.SendText(ctx, id, "Hello")
//	for ev := range events {
//		// forward ev to the browser
//	}
//
// All relay operations are safe for concurrent use. Within one session the
// send path and the receive drain serialize through the session's own lock;
// the registry is safe across sessions.
package voicerelay
