package thread

// AddressSpace is the simulated user address space of a thread running a
// user program. Kernel-only threads have none. State save/restore is
// delegated here around every context switch.
type AddressSpace struct {
	name  string
	saved bool
}

// NewAddressSpace creates an address space for a user program.
func NewAddressSpace(name string) *AddressSpace {
	return &AddressSpace{name: name}
}

// SaveState records machine state owned by the space (page table, in the
// real machine) before the owning thread is switched out.
func (as *AddressSpace) SaveState() {
	as.saved = true
}

// RestoreState reinstates the space's machine state after the owning thread
// is switched back in.
func (as *AddressSpace) RestoreState() {
	as.saved = false
}

// SetSpace attaches an address space to the thread, marking it a user
// program. Must happen before the thread is forked.
func (t *Thread) SetSpace(space *AddressSpace) {
	t.space = space
}

func (t *Thread) HasAddressSpace() bool {
	return t.space != nil
}

// SaveUserState snapshots the simulated user register file.
func (t *Thread) SaveUserState() {
	t.userRegisters = t.registers
}

// RestoreUserState reinstates the snapshotted register file.
func (t *Thread) RestoreUserState() {
	t.registers = t.userRegisters
}

func (t *Thread) SaveSpaceState() {
	t.space.SaveState()
}

func (t *Thread) RestoreSpaceState() {
	t.space.RestoreState()
}
