package service

import "context"

type testTxRepos struct {
	documents DocumentRepository
	chunks    ChunkStore
}

func (t *testTxRepos) Documents() DocumentRepository {
	return t.documents
}

func (t *testTxRepos) Chunks() ChunkStore {
	return t.chunks
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	return fn(t.repos)
}
