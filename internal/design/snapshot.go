package design

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Snapshot is a point-in-time JSON export of a design project, produced by
// the host plugin. It implements TreeAPI, ContentAPI, ComponentScanner and
// PublishingAPI so a full analysis can run offline, and doubles as the
// fixture format for end-to-end tests.
type Snapshot struct {
	PublishedURL_ string               `json:"published_url,omitempty"`
	Pages         []PageRef            `json:"pages"`
	Nodes         []SnapshotNode       `json:"nodes"`
	Collections   []SnapshotCollection `json:"collections,omitempty"`
	Instances     []ComponentInstance  `json:"component_instances,omitempty"`

	nodeByID map[string]*SnapshotNode
	parentOf map[string]string
}

// SnapshotNode is a Node plus its child edges in document order.
type SnapshotNode struct {
	Node
	Children []string `json:"children,omitempty"`
}

// SnapshotItem is one collection item with its asset field values keyed by
// field ID.
type SnapshotItem struct {
	ItemRef
	Values map[string]*FieldValue `json:"values,omitempty"`
}

// SnapshotCollection is a collection with its fields and items inline.
type SnapshotCollection struct {
	CollectionRef
	Fields []FieldRef     `json:"fields,omitempty"`
	Items  []SnapshotItem `json:"items,omitempty"`
}

// LoadSnapshot reads and indexes a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot parses and indexes snapshot JSON.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	s.index()
	return &s, nil
}

func (s *Snapshot) index() {
	s.nodeByID = make(map[string]*SnapshotNode, len(s.Nodes))
	s.parentOf = make(map[string]string, len(s.Nodes))
	for i := range s.Nodes {
		n := &s.Nodes[i]
		s.nodeByID[n.ID] = n
	}
	for i := range s.Nodes {
		n := &s.Nodes[i]
		for _, child := range n.Children {
			s.parentOf[child] = n.ID
		}
	}
}

// ListTopLevelPages implements TreeAPI.
func (s *Snapshot) ListTopLevelPages(_ context.Context, excludeDesignPages bool) ([]PageRef, error) {
	pages := make([]PageRef, 0, len(s.Pages))
	for _, p := range s.Pages {
		if excludeDesignPages && p.IsDesignPage {
			continue
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// GetNode implements TreeAPI.
func (s *Snapshot) GetNode(_ context.Context, id string) (*Node, error) {
	n, ok := s.nodeByID[id]
	if !ok {
		return nil, nil
	}
	node := n.Node
	return &node, nil
}

// GetChildren implements TreeAPI.
func (s *Snapshot) GetChildren(_ context.Context, id string) ([]NodeRef, error) {
	n, ok := s.nodeByID[id]
	if !ok {
		return nil, nil
	}
	refs := make([]NodeRef, 0, len(n.Children))
	for _, child := range n.Children {
		refs = append(refs, NodeRef{ID: child})
	}
	return refs, nil
}

// GetParent implements TreeAPI.
func (s *Snapshot) GetParent(_ context.Context, id string) (*NodeRef, error) {
	parent, ok := s.parentOf[id]
	if !ok {
		return nil, nil
	}
	return &NodeRef{ID: parent}, nil
}

// ListCollections implements ContentAPI.
func (s *Snapshot) ListCollections(_ context.Context) ([]CollectionRef, error) {
	refs := make([]CollectionRef, 0, len(s.Collections))
	for _, c := range s.Collections {
		refs = append(refs, c.CollectionRef)
	}
	return refs, nil
}

// ListFields implements ContentAPI.
func (s *Snapshot) ListFields(_ context.Context, collectionID string) ([]FieldRef, error) {
	for _, c := range s.Collections {
		if c.ID == collectionID {
			return append([]FieldRef(nil), c.Fields...), nil
		}
	}
	return nil, nil
}

// ListItems implements ContentAPI.
func (s *Snapshot) ListItems(_ context.Context, collectionID string) ([]ItemRef, error) {
	for _, c := range s.Collections {
		if c.ID == collectionID {
			refs := make([]ItemRef, 0, len(c.Items))
			for _, it := range c.Items {
				refs = append(refs, it.ItemRef)
			}
			return refs, nil
		}
	}
	return nil, nil
}

// GetFieldValue implements ContentAPI.
func (s *Snapshot) GetFieldValue(_ context.Context, collectionID, itemID, fieldID string) (*FieldValue, error) {
	for _, c := range s.Collections {
		if c.ID != collectionID {
			continue
		}
		for _, it := range c.Items {
			if it.ID == itemID {
				return it.Values[fieldID], nil
			}
		}
	}
	return nil, nil
}

// ListComponentInstances implements ComponentScanner.
func (s *Snapshot) ListComponentInstances(_ context.Context) ([]ComponentInstance, error) {
	return append([]ComponentInstance(nil), s.Instances...), nil
}

// PublishedURL implements PublishingAPI.
func (s *Snapshot) PublishedURL(_ context.Context) (string, error) {
	return s.PublishedURL_, nil
}
