// Package jack is the JACK device backend. It needs the JACK development
// headers and is only built with -tags jack; other builds get a stub whose
// Open fails.
package jack
