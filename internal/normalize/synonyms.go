package normalize

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var defaultSynonyms = map[string]string{
	"OCP":     "OpenShift Container Platform",
	"RHEL":    "Red Hat Enterprise Linux",
	"RHOSP":   "Red Hat OpenStack Platform",
	"RHOAI":   "Red Hat OpenShift AI",
	"RHODS":   "Red Hat OpenShift Data Science",
	"RHACS":   "Red Hat Advanced Cluster Security",
	"RHACM":   "Red Hat Advanced Cluster Management",
	"AAP":     "Ansible Automation Platform",
	"ACM":     "Advanced Cluster Management",
	"ACS":     "Advanced Cluster Security",
	"ARO":     "Azure Red Hat OpenShift",
	"ROSA":    "Red Hat OpenShift Service on AWS",
	"ODF":     "OpenShift Data Foundation",
	"OVN":     "Open Virtual Networking",
	"SDN":     "Software Defined Networking",
	"CNV":     "OpenShift Virtualization",
	"k8s":     "Kubernetes",
	"OOM":     "Out of Memory",
	"SELinux": "Security-Enhanced Linux",
	"RBAC":    "role-based access control",
	"CRI-O":   "CRI-O container runtime",
	"FIPS":    "Federal Information Processing Standards",
	"LDAP":    "Lightweight Directory Access Protocol",
	"IdM":     "Identity Management",
	"IPA":     "Identity Policy Audit",
	"EUS":     "Extended Update Support",
	"E4S":     "Update Services for SAP Solutions",
	"TUS":     "Telecommunications Update Service",
}

// DefaultSynonyms returns a fresh copy of the curated Red Hat abbreviation dictionary.
func DefaultSynonyms() map[string]string {
	out := make(map[string]string, len(defaultSynonyms))
	for k, v := range defaultSynonyms {
		out[k] = v
	}
	return out
}

// Expander appends full names after known abbreviations.
// Matching is case-sensitive and whole-word; the abbreviation itself is kept
// so exact-match boosts still fire: "install OCP 4.16" becomes
// "install OCP (OpenShift Container Platform) 4.16".
// Word boundaries are Unicode-aware: letters, digits and '_' of any script
// are word characters, so "éOCP" is left alone.
type Expander struct {
	dict map[string]string
	keys []string // longest first
}

// NewExpander builds an Expander over dict. An empty dict expands nothing.
func NewExpander(dict map[string]string) *Expander {
	e := &Expander{dict: make(map[string]string, len(dict))}
	for k, v := range dict {
		if k == "" {
			continue
		}
		e.dict[k] = v
		e.keys = append(e.keys, k)
	}

	// Longest first so overlapping keys resolve the same way on every run.
	sort.Slice(e.keys, func(i, j int) bool {
		if len(e.keys[i]) != len(e.keys[j]) {
			return len(e.keys[i]) > len(e.keys[j])
		}
		return e.keys[i] < e.keys[j]
	})
	return e
}

// Expand rewrites text, returning it unchanged when nothing matches.
func (e *Expander) Expand(text string) string {
	if e == nil || len(e.keys) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for i := 0; i < len(text); {
		if k := e.matchAt(text, i); k != "" {
			end := i + len(k)
			b.WriteString(text[last:end])
			b.WriteString(" (")
			b.WriteString(e.dict[k])
			b.WriteString(")")
			last, i = end, end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func (e *Expander) matchAt(text string, i int) string {
	if !boundaryAt(text, i) {
		return ""
	}
	for _, k := range e.keys {
		if strings.HasPrefix(text[i:], k) && boundaryAt(text, i+len(k)) {
			return k
		}
	}
	return ""
}

// boundaryAt reports whether byte offset i sits between a word and a
// non-word character, with the ends of text counting as non-word.
func boundaryAt(text string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:i])
		before = isWordRune(r)
	}
	if i < len(text) {
		r, _ := utf8.DecodeRuneInString(text[i:])
		after = isWordRune(r)
	}
	return before != after
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
