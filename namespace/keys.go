package namespace

import "fmt"

// Badger key layout:
//
//	node/<id>                        -> Node json
//	owner/<id>                       -> Owner json
//	child/<owner>/<parent>/<name>    -> node id
//	blob/<storageKey>/<chunk>        -> ciphertext chunk
//
// Display names cannot contain '/' (validateName), so child keys are
// unambiguous, and the child index iterates siblings in lexical name order.

func nodeKey(id string) []byte {
	return []byte(fmt.Sprintf("node/%s", id))
}

func ownerKey(id string) []byte {
	return []byte(fmt.Sprintf("owner/%s", id))
}

func childKey(owner, parent, name string) []byte {
	return []byte(fmt.Sprintf("child/%s/%s/%s", owner, parent, name))
}

func childPrefix(owner, parent string) []byte {
	return []byte(fmt.Sprintf("child/%s/%s/", owner, parent))
}

func ownerChildPrefix(owner string) []byte {
	return []byte(fmt.Sprintf("child/%s/", owner))
}

func blobChunkKey(storageKey string, chunk int) []byte {
	return []byte(fmt.Sprintf("blob/%s/%010d", storageKey, chunk))
}

func blobPrefix(storageKey string) []byte {
	return []byte(fmt.Sprintf("blob/%s/", storageKey))
}
