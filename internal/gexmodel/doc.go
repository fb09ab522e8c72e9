// Package gexmodel derives strike-indexed gamma exposure profiles from
// epoch state. Exposure follows the dealer convention: calls contribute
// positive gamma, puts negative, and the zero-gamma level is where the
// cumulative net profile flips sign.
package gexmodel
