// Package artifact writes the JSON output tree of a transform run.
//
// # Layout
//
// Each department gets its own directory under the output root. The
// cross-department manifest sits at the root:
//
//	out/
//	  index.json
//	  montevideo/
//	    odn.json
//	    odd.json
//	    metadata.json
//	    montevideo_map.json
//	    zone-mappings.json
//	    report.json
//
// # Atomicity
//
// A department is published all at once or not at all. Artifacts are
// written into a [Stage], a hidden sibling directory of the final one, and
// [Stage.Commit] swaps it into place with renames. A run that fails or is
// cancelled calls [Stage.Abort], leaving any previously published directory
// untouched.
//
// Single files outside a stage, such as index.json or a rewritten boundary
// file, go through [WriteFile], which writes a temporary file next to the
// target and renames it over the target.
//
// # Reading
//
// [ReadJSON] decodes any artifact back into its Go type, and [ReadIndex]
// loads the manifest. The preview server and the breaks command use them.
package artifact
