// Package mdstream parses Markdown incrementally, as it arrives from a
// stream such as a language model response, and reports its structure to a
// Renderer.
//
// A Parser consumes chunks of any size. Every node is announced with
// AddToken as soon as its kind is certain, text follows through AddText, and
// EndToken closes the node. Splitting the same input into different chunks
// yields the same events. Finish closes whatever is still open at the end of
// the stream.
//
// Renderers for ANSI terminals, HTML fragments, an x/net/html node tree and a
// line oriented event log are included. Render wires a reader to one of them:
//
//	err := mdstream.Render(mdstream.RenderRequest{
//		Reader: strings.NewReader("# Hello\n\nMarkdown in, ANSI out.\n"),
//		Writer: os.Stdout,
//		Width:  80,
//		Theme:  mdstream.DefaultTheme(),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Custom renderers implement Renderer[T] for a context type of their choice
// and are driven with NewParser and Parser.Write, or with Parse.
package mdstream
