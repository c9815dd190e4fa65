// Package assessment scores the PHQ-9 and GAD-7 self-assessment
// questionnaires.
//
// Definitions are fixed: each question takes a value from 0 to 3 and the
// total maps onto a severity band by inclusive upper bounds. A Form collects
// answers and refuses to score until every question has one. A Session holds
// a submitted result and shares it only when asked to, through an injected
// Helpers service.
package assessment
