// Package score maps findings to Severity, Probability and Detectability on
// an ordinal scale and derives the Risk Priority Number, RPN = S × P × D.
//
// All three axes use "higher is worse": a high Detectability value means the
// behaviour is hard to detect. Severity grows with evidence through
// per-category breakpoints. Probability grows as the same evidence is packed
// into a shorter span relative to a category baseline. Values outside the
// scale are clamped and logged, never rejected.
package score
