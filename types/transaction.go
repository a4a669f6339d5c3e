package types

// DeployMessage carries raw program bytecode.
type DeployMessage struct {
	Bytecode []byte `cramberry:"1"`
}

// ProgramDeploymentTransaction installs a program. Its identity is
// implied by the bytecode and never sent explicitly.
type ProgramDeploymentTransaction struct {
	Message DeployMessage `cramberry:"1"`
}

// NewProgramDeploymentTransaction wraps bytecode in a deployment.
func NewProgramDeploymentTransaction(bytecode []byte) ProgramDeploymentTransaction {
	return ProgramDeploymentTransaction{Message: DeployMessage{Bytecode: bytecode}}
}

// Hash identifies the deployment transaction.
func (t ProgramDeploymentTransaction) Hash() (Hash, error) {
	return hashOf(t)
}

// PublicTransaction is the unit submitted for execution.
type PublicTransaction struct {
	Message    Message    `cramberry:"1"`
	WitnessSet WitnessSet `cramberry:"2"`
}

// NewPublicTransaction pairs a message with its witnesses.
func NewPublicTransaction(msg Message, ws WitnessSet) PublicTransaction {
	return PublicTransaction{Message: msg, WitnessSet: ws}
}

// Hash identifies the transaction.
func (t PublicTransaction) Hash() (Hash, error) {
	return hashOf(t)
}
