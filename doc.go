// Package zag stages files in memory and packs them into a single zip archive.
//
// The state is an immutable [EntrySet] of named payloads owned by a [Store].
// Files enter through an [Ingester], which snapshots their bytes eagerly. A
// [Pipeline] encodes a snapshot of the set into a zip container, STORE at
// compression level 0 and DEFLATE at levels 1-9, and hands the result to a
// [Saver].
//
// # Quick Start
//
//	s := zag.NewSession(zag.SessionWithPipeline(zag.NewPipeline(
//	    zag.ExportWithSaver(zag.FileSaver{Dir: "out"}),
//	)))
//	f, err := zag.OSFile("report.pdf")
//	if err != nil {
//	    return err
//	}
//	if err := s.Add(ctx, f); err != nil {
//	    return err
//	}
//	task, err := s.Download(ctx)
//	if err != nil {
//	    return err
//	}
//	res, err := task.Wait(ctx)
//
// [Session] ties the pieces together the way an interactive front end needs:
// it disables downloads while one is encoding and routes failures to a
// single auto-dismissing notification.
package zag
