package registry

// Spec describes one NetBox object collection: its semantic name, the API
// path it lives under, and the collections its records reference.
//
// The path may differ lexically from the name (e.g. vm-interfaces live
// under virtualization/interfaces); the mapping is maintained by hand
// here, not discovered.
type Spec struct {
	Name string
	Path string

	// Refs maps a record field to the collection its flattened
	// identifier points at. These are hard edges: the referenced
	// collection must be exported/imported before this one. Self
	// references (e.g. a group's parent group) are allowed and ignored
	// for ordering.
	Refs map[string]string

	// SoftRefs are declared circular references (cable<->device,
	// device<->primary IP). They are excluded from ordering; the import
	// engine leaves them out on the first pass and patches them in a
	// second pass once both sides exist.
	SoftRefs map[string]string
}

// DependsOn returns the distinct hard-edge targets, self references
// excluded, in no particular order.
func (s Spec) DependsOn() []string {
	seen := make(map[string]bool)
	var deps []string
	for _, target := range s.Refs {
		if target == s.Name || seen[target] {
			continue
		}
		seen[target] = true
		deps = append(deps, target)
	}
	return deps
}

// collections is the hand-curated table of everything the tool migrates,
// matching the NetBox v4 API. Declaration order is the planner's
// tie-break, so the table leads with tags: nearly every other collection
// can carry them. User accounts and permissions are deliberately absent.
var collections = []Spec{
	// extras
	{Name: "tags", Path: "extras/tags"},
	{Name: "custom-fields", Path: "extras/custom-fields"},
	{Name: "custom-links", Path: "extras/custom-links"},
	{Name: "export-templates", Path: "extras/export-templates"},
	{Name: "saved-filters", Path: "extras/saved-filters"},
	{Name: "webhooks", Path: "extras/webhooks"},
	{Name: "config-contexts", Path: "extras/config-contexts"},
	{Name: "journal-entries", Path: "extras/journal-entries"},

	// tenancy
	{Name: "tenant-groups", Path: "tenancy/tenant-groups",
		Refs: map[string]string{"parent": "tenant-groups"}},
	{Name: "tenants", Path: "tenancy/tenants",
		Refs: map[string]string{"group": "tenant-groups"}},
	{Name: "contact-groups", Path: "tenancy/contact-groups",
		Refs: map[string]string{"parent": "contact-groups"}},
	{Name: "contact-roles", Path: "tenancy/contact-roles"},
	{Name: "contacts", Path: "tenancy/contacts",
		Refs: map[string]string{"group": "contact-groups"}},
	{Name: "contact-assignments", Path: "tenancy/contact-assignments",
		Refs: map[string]string{"contact": "contacts", "role": "contact-roles"}},

	// circuits
	{Name: "providers", Path: "circuits/providers"},
	{Name: "circuit-types", Path: "circuits/circuit-types"},
	{Name: "circuits", Path: "circuits/circuits",
		Refs: map[string]string{"provider": "providers", "type": "circuit-types", "tenant": "tenants"}},
	{Name: "circuit-terminations", Path: "circuits/circuit-terminations",
		Refs: map[string]string{"circuit": "circuits", "site": "sites"}},

	// dcim
	{Name: "site-groups", Path: "dcim/site-groups",
		Refs: map[string]string{"parent": "site-groups"}},
	{Name: "sites", Path: "dcim/sites",
		Refs: map[string]string{"group": "site-groups", "tenant": "tenants"}},
	{Name: "locations", Path: "dcim/locations",
		Refs: map[string]string{"site": "sites", "parent": "locations", "tenant": "tenants"}},
	{Name: "manufacturers", Path: "dcim/manufacturers"},
	{Name: "rack-roles", Path: "dcim/rack-roles"},
	{Name: "racks", Path: "dcim/racks",
		Refs: map[string]string{"site": "sites", "location": "locations", "tenant": "tenants", "role": "rack-roles"}},
	{Name: "rack-reservations", Path: "dcim/rack-reservations",
		Refs: map[string]string{"rack": "racks", "tenant": "tenants"}},
	{Name: "device-roles", Path: "dcim/device-roles"},
	{Name: "platforms", Path: "dcim/platforms",
		Refs: map[string]string{"manufacturer": "manufacturers"}},
	{Name: "device-types", Path: "dcim/device-types",
		Refs: map[string]string{"manufacturer": "manufacturers"}},
	{Name: "module-types", Path: "dcim/module-types",
		Refs: map[string]string{"manufacturer": "manufacturers"}},
	{Name: "devices", Path: "dcim/devices",
		Refs: map[string]string{
			"device_type": "device-types", "role": "device-roles",
			"site": "sites", "location": "locations", "rack": "racks",
			"platform": "platforms", "tenant": "tenants",
		},
		SoftRefs: map[string]string{
			"primary_ip4": "ip-addresses", "primary_ip6": "ip-addresses",
			"virtual_chassis": "virtual-chassis",
		}},
	{Name: "virtual-chassis", Path: "dcim/virtual-chassis",
		SoftRefs: map[string]string{"master": "devices"}},
	{Name: "cables", Path: "dcim/cables",
		Refs: map[string]string{"tenant": "tenants"},
		SoftRefs: map[string]string{
			"a_terminations": "devices", "b_terminations": "devices",
		}},
	{Name: "power-panels", Path: "dcim/power-panels",
		Refs: map[string]string{"site": "sites", "location": "locations"}},
	{Name: "power-feeds", Path: "dcim/power-feeds",
		Refs: map[string]string{"power_panel": "power-panels", "rack": "racks", "tenant": "tenants"}},

	// ipam
	{Name: "rirs", Path: "ipam/rir"},
	{Name: "aggregates", Path: "ipam/aggregates",
		Refs: map[string]string{"rir": "rirs", "tenant": "tenants"}},
	{Name: "roles", Path: "ipam/roles"},
	{Name: "vlan-groups", Path: "ipam/vlan-groups"},
	{Name: "vlans", Path: "ipam/vlans",
		Refs: map[string]string{"group": "vlan-groups", "site": "sites", "tenant": "tenants", "role": "roles"}},
	{Name: "prefixes", Path: "ipam/prefixes",
		Refs: map[string]string{"site": "sites", "vlan": "vlans", "tenant": "tenants", "role": "roles"}},
	{Name: "ip-ranges", Path: "ipam/ip-ranges",
		Refs: map[string]string{"tenant": "tenants", "role": "roles"}},
	{Name: "ip-addresses", Path: "ipam/ip-addresses",
		Refs:     map[string]string{"tenant": "tenants"},
		SoftRefs: map[string]string{"assigned_object": "devices"}},
	{Name: "fhrp-groups", Path: "ipam/fhrp-groups"},
	{Name: "services", Path: "ipam/services",
		Refs: map[string]string{"device": "devices", "virtual_machine": "virtual-machines", "ipaddresses": "ip-addresses"}},

	// virtualization
	{Name: "cluster-types", Path: "virtualization/cluster-types"},
	{Name: "cluster-groups", Path: "virtualization/cluster-groups"},
	{Name: "clusters", Path: "virtualization/clusters",
		Refs: map[string]string{"type": "cluster-types", "group": "cluster-groups", "site": "sites", "tenant": "tenants"}},
	{Name: "virtual-machines", Path: "virtualization/virtual-machines",
		Refs: map[string]string{
			"cluster": "clusters", "tenant": "tenants", "platform": "platforms",
			"role": "device-roles", "site": "sites",
		},
		SoftRefs: map[string]string{"primary_ip4": "ip-addresses", "primary_ip6": "ip-addresses"}},
	// NetBox serves VM interfaces under a path that does not match the
	// model name.
	{Name: "vm-interfaces", Path: "virtualization/interfaces",
		Refs: map[string]string{"virtual_machine": "virtual-machines"}},

	// wireless
	{Name: "wireless-lan-groups", Path: "wireless/wireless-lan-groups",
		Refs: map[string]string{"parent": "wireless-lan-groups"}},
	{Name: "wireless-lans", Path: "wireless/wireless-lans",
		Refs: map[string]string{"group": "wireless-lan-groups", "vlan": "vlans", "tenant": "tenants"}},
	{Name: "wireless-links", Path: "wireless/wireless-links",
		Refs:     map[string]string{"tenant": "tenants"},
		SoftRefs: map[string]string{"interface_a": "devices", "interface_b": "devices"}},

	// vpn
	{Name: "ike-proposals", Path: "vpn/ike-proposals"},
	{Name: "ike-policies", Path: "vpn/ike-policies",
		Refs: map[string]string{"proposals": "ike-proposals"}},
	{Name: "ipsec-proposals", Path: "vpn/ipsec-proposals"},
	{Name: "ipsec-policies", Path: "vpn/ipsec-policies",
		Refs: map[string]string{"proposals": "ipsec-proposals"}},
	{Name: "ipsec-profiles", Path: "vpn/ipsec-profiles",
		Refs: map[string]string{"ike_policy": "ike-policies", "ipsec_policy": "ipsec-policies"}},
	{Name: "tunnels", Path: "vpn/tunnels",
		Refs: map[string]string{"ipsec_profile": "ipsec-profiles", "tenant": "tenants"}},
	{Name: "tunnel-terminations", Path: "vpn/tunnel-terminations",
		Refs: map[string]string{"tunnel": "tunnels"}},
	{Name: "l2vpns", Path: "vpn/l2vpns",
		Refs: map[string]string{"tenant": "tenants"}},
	{Name: "l2vpn-terminations", Path: "vpn/l2vpn-terminations",
		Refs: map[string]string{"l2vpn": "l2vpns"}},
}

// All returns the full collection table in declaration order.
func All() []Spec {
	out := make([]Spec, len(collections))
	copy(out, collections)
	return out
}

// ByName looks a collection up by its semantic name.
func ByName(name string) (Spec, bool) {
	for _, s := range collections {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}
