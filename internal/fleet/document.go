package fleet

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// documentHeader is prepended to every written document so operators editing
// the file by hand know where it came from.
const documentHeader = `# Virtual device fleet definition.
# Edited by the configuration tool; hand edits are picked up on reload.
# Last-known property values are maintained by the service.
`

// Parse unmarshals, normalizes, and validates a fleet document.
//
// A document that fails validation is rejected wholesale: no subset of its
// devices is ever loaded.
//
// Parameters:
//   - data: Raw YAML document bytes
//
// Returns:
//   - *Document: The parsed document
//   - error: ErrInvalidDocument (wrapped) describing every problem found
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	doc.normalize()

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// Marshal serializes the document to YAML with the standard header.
func Marshal(doc *Document) ([]byte, error) {
	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling fleet document: %w", err)
	}
	return append([]byte(documentHeader), body...), nil
}

// normalize fills in defaults the YAML form leaves implicit.
func (d *Document) normalize() {
	for i := range d.Devices {
		for j := range d.Devices[i].Bindings {
			p := &d.Devices[i].Bindings[j].Payload
			if !p.IsBoolean() && p.Scale == 0 {
				p.Scale = 1
			}
		}
	}
}

// Validate checks the document for structural errors.
//
// All problems are collected and reported together so an operator can fix
// a hand-edited file in one pass.
//
// Returns:
//   - error: ErrInvalidDocument (wrapped) listing every problem, or nil
func (d *Document) Validate() error {
	var errs []string

	seenInstance := make(map[int]bool)
	for i := range d.Devices {
		dev := &d.Devices[i]
		label := fmt.Sprintf("device %d", dev.Instance)
		if dev.Instance <= 0 {
			label = fmt.Sprintf("devices[%d]", i)
			errs = append(errs, label+": instance must be a positive integer")
		} else if seenInstance[dev.Instance] {
			errs = append(errs, label+": duplicate instance id")
		}
		seenInstance[dev.Instance] = true

		if !dev.Type.Valid() {
			errs = append(errs, fmt.Sprintf("%s: unknown type %q", label, dev.Type))
		}
		if dev.Name == "" {
			errs = append(errs, label+": name is required")
		}
		if len(dev.Bindings) == 0 {
			errs = append(errs, label+": at least one binding is required")
		}

		seenKey := make(map[string]bool)
		seenTopic := make(map[string]bool)
		for j := range dev.Bindings {
			b := &dev.Bindings[j]
			bLabel := fmt.Sprintf("%s binding %q", label, b.Key)

			if b.Key == "" {
				errs = append(errs, fmt.Sprintf("%s bindings[%d]: key is required", label, j))
			} else if seenKey[b.Key] {
				errs = append(errs, bLabel+": duplicate property key")
			}
			seenKey[b.Key] = true

			if b.StateTopic == "" {
				errs = append(errs, bLabel+": state_topic is required")
			} else if seenTopic[b.StateTopic] {
				// Shared topics across devices are fine; within one device
				// they would make routing ambiguous.
				errs = append(errs, bLabel+": state_topic already used by another binding of this device")
			}
			seenTopic[b.StateTopic] = true

			errs = append(errs, b.Payload.validate(bLabel, b.CommandTopic != "")...)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(errs, "; "))
	}

	return nil
}

// validate checks one payload mapping. writable indicates a command topic is
// configured, which requires command strings for boolean mappings.
func (m PayloadMapping) validate(label string, writable bool) []string {
	var errs []string

	if m.IsBoolean() {
		if m.OnState == "" || m.OffState == "" {
			errs = append(errs, label+": boolean payload needs both on_state and off_state")
		}
		if writable && (m.OnCommand == "" || m.OffCommand == "") {
			errs = append(errs, label+": writable boolean payload needs on_command and off_command")
		}
	} else {
		if m.Scale == 0 {
			errs = append(errs, label+": numeric payload scale must not be zero")
		}
		if m.Invert {
			errs = append(errs, label+": invert only applies to boolean payloads")
		}
	}

	return errs
}

// EnsureSerials assigns a serial to every device that lacks one.
//
// Returns:
//   - bool: true if any serial was assigned (document needs persisting)
func (d *Document) EnsureSerials() bool {
	changed := false
	for i := range d.Devices {
		if d.Devices[i].Serial == "" {
			d.Devices[i].Serial = GenerateSerial()
			changed = true
		}
	}
	return changed
}
