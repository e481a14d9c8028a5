package config

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// AllowedUsers is the access allow-list. Empty allows everyone.
type AllowedUsers []string

// Permits reports whether userID may run commands.
func (a AllowedUsers) Permits(userID string) bool {
	if len(a) == 0 {
		return true
	}

	return slices.Contains(a, strings.TrimSpace(userID))
}

// Describe returns a short human readable summary.
func (a AllowedUsers) Describe() string {
	if len(a) == 0 {
		return "unrestricted"
	}

	return strings.Join(a, ", ")
}

// UnmarshalYAML accepts a list, a JSON array string or a comma separated string.
func (a *AllowedUsers) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		users := make(AllowedUsers, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return errors.Newf("allowed_users line %d: expected a user ID", item.Line)
			}

			if v := strings.TrimSpace(item.Value); v != "" && item.Tag != "!!null" {
				users = append(users, v)
			}
		}

		*a = users

		return nil
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*a = nil

			return nil
		}

		users, err := ParseAllowedUsers(node.Value)
		if err != nil {
			return err
		}

		*a = users

		return nil
	default:
		return errors.Newf("allowed_users line %d: expected a list or a string", node.Line)
	}
}

// ParseAllowedUsers parses a JSON array such as ["123", 456] or a comma
// separated list such as "123,456". Blank input yields an empty list.
func ParseAllowedUsers(s string) (AllowedUsers, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if strings.HasPrefix(s, "[") {
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()

		var raw []any
		if err := dec.Decode(&raw); err != nil {
			return nil, errors.Wrap(err, "allowed_users is not a valid JSON array")
		}

		users := make(AllowedUsers, 0, len(raw))
		for _, v := range raw {
			switch t := v.(type) {
			case string:
				if t = strings.TrimSpace(t); t != "" {
					users = append(users, t)
				}
			case json.Number:
				users = append(users, t.String())
			case nil:
			default:
				return nil, errors.Newf("allowed_users contains unsupported value %v", v)
			}
		}

		return users, nil
	}

	var users AllowedUsers

	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			users = append(users, p)
		}
	}

	return users, nil
}
