// Package opc reads and writes Open Packaging Conventions containers, the
// zip archives behind DOCX, XLSX and PPTX files.
//
// A [Package] is an in-memory map from part name (for example
// "word/document.xml") to raw bytes. Packages are opened from bytes,
// edited with [Package.SetPart], and written back with
// [Package.Serialize]:
//
//	pkg, err := opc.Open(data)
//	if err != nil {
//	    // errors.Is(err, opc.ErrCorruptArchive)
//	}
//	xml, err := pkg.Text("word/document.xml")
//	pkg.SetPart("word/document.xml", []byte(updated))
//	out, err := pkg.Serialize()
//
// This layer never touches the filesystem.
package opc
