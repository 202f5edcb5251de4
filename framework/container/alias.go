package container

// aliasMapping indexes alias keys to the concrete keys reachable through
// them. Built once by the Builder, read-only afterwards.
type aliasMapping struct {
	index map[AliasKey][]ComponentKey
}

func newAliasMapping() *aliasMapping {
	return &aliasMapping{index: make(map[AliasKey][]ComponentKey)}
}

func (m *aliasMapping) register(alias AliasKey, key ComponentKey) {
	for _, existing := range m.index[alias] {
		if existing == key {
			return
		}
	}
	m.index[alias] = append(m.index[alias], key)
}

// find returns the candidate keys for alias. The slice must not be modified.
func (m *aliasMapping) find(alias AliasKey) []ComponentKey {
	return m.index[alias]
}
