package container

// ContainerDestroyed is broadcast by Container.Destroy. Caching scopes
// observe it to tear down the instances they hold.
type ContainerDestroyed struct{}
