package workflow

// CloseArchive shuts the archive database so tests can observe how
// decisions behave when archiving fails.
func CloseArchive(m *Manager) error { return m.archive.Close() }
