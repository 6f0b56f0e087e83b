package arc

import "container/list"

// keyList is an ordered set of keys with O(1) membership, MRU insertion,
// and LRU removal. The list front is the LRU end.
type keyList struct {
	order *list.List
	elems map[string]*list.Element
}

func newKeyList() *keyList {
	return &keyList{
		order: list.New(),
		elems: make(map[string]*list.Element),
	}
}

func (l *keyList) contains(key string) bool {
	_, ok := l.elems[key]
	return ok
}

func (l *keyList) len() int {
	return len(l.elems)
}

// pushMRU appends key at the MRU end. The key must not already be present.
func (l *keyList) pushMRU(key string) {
	l.elems[key] = l.order.PushBack(key)
}

func (l *keyList) moveToMRU(key string) {
	if e, ok := l.elems[key]; ok {
		l.order.MoveToBack(e)
	}
}

func (l *keyList) remove(key string) {
	if e, ok := l.elems[key]; ok {
		l.order.Remove(e)
		delete(l.elems, key)
	}
}

// popLRU removes and returns the LRU key. Returns "" when empty.
func (l *keyList) popLRU() string {
	front := l.order.Front()
	if front == nil {
		return ""
	}
	key := front.Value.(string)
	l.order.Remove(front)
	delete(l.elems, key)
	return key
}
