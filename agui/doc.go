// Package agui maps comicflow workflow events to the AG-UI protocol.
//
// AG-UI (Agent-User Interface) is an open, event-based protocol connecting
// agents to user-facing applications. A [Mapper] converts the [event.Event]s
// of one pipeline run into AG-UI events that an HTTP handler can stream as
// server-sent events:
//
//	mapper := agui.NewMapper(threadID, run.ID())
//	stream := mapper.MapRun(run.Events(), func() (any, error) {
//	    final, err := run.Wait()
//	    return final.Output, err
//	})
//	for ev := range stream {
//	    writeSSE(w, ev)
//	}
//
// # Event Mapping
//
//   - run_start → RUN_STARTED, run_end → RUN_FINISHED, run_error → RUN_ERROR
//   - step_start → STEP_STARTED, step_end → STEP_FINISHED
//   - route_selected, parallel_start and parallel_end have no AG-UI equivalent and are dropped
//
// Step names are qualified so concurrent and nested steps stay distinct:
// fan-out tasks carry their index ("write_scene[1]") and sub-graph steps
// their graph ("scene_visual/describe_visual").
//
// [Mapper.MapRun] delivers the assembled output as one assistant text
// message, whose content is the output JSON, just before RUN_FINISHED.
//
// # Thread Safety
//
// The Mapper is NOT safe for concurrent use. Create one per run.
package agui
