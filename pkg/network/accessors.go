package network

// Exported name-ordering accessors. pkg/lopf, pkg/result and pkg/dataimport
// all need to walk the network's entity tables in a stable order (LP
// variable indices and report rows must not depend on Go's randomised map
// iteration), so every consumer outside this package uses these instead of
// ranging over the maps directly.

func (n *Network) GeneratorNames() []string      { return sortedGeneratorNames(n.Generators) }
func (n *Network) StorageUnitNames() []string     { return sortedStorageNames(n.StorageUnits) }
func (n *Network) LoadNames() []string            { return sortedLoadNames(n.Loads) }
func (n *Network) BusNames() []string             { return sortedBusNames(n.Buses) }
func (n *Network) LineNames() []string            { return sortedLineNames(n.Lines) }
func (n *Network) TransformerNames() []string     { return sortedTransformerNames(n.Transformers) }
func (n *Network) ConverterNames() []string       { return sortedConverterNames(n.Converters) }
func (n *Network) TransportLinkNames() []string   { return sortedTransportLinkNames(n.TransportLinks) }
func (n *Network) SubNetworkNames() []string      { return sortedSubNetworkNames(n.SubNetworks) }

// TopologyDetermined reports whether sub-networks have been built since
// the last invalidating mutation.
func (n *Network) TopologyDetermined() bool { return n.topologyDetermined }

// EnsureTopology runs DetermineTopology if it has not already run (or was
// invalidated), otherwise is a no-op. Callers that only read cached
// topology (pkg/lopf, pkg/result) use this instead of calling
// DetermineTopology unconditionally, which would discard any in-progress
// per-snapshot series writes that do not themselves invalidate topology.
func (n *Network) EnsureTopology() error {
	if n.topologyDetermined {
		return nil
	}
	return n.DetermineTopology()
}
