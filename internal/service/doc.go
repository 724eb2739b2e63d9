// Package service orchestrates terraform executions against ephemeral workspaces.
//
// DirectoryService owns the per-request sequence:
//
//	Created → Executed → Harvested → Deleted
//
// A failed apply or destroy stops after Executed and leaves the workspace on
// disk for inspection; the workspace sweep removes it later. A failed plan is
// harvested and deleted like a success.
//
// ScriptService materializes a fresh workspace from inline scripts (and, for
// destroy, a prior state blob) and hands it to DirectoryService. Its async
// entry points run the same pipeline on a dispatch.Pool and POST the result to
// a callback URL once.
package service
