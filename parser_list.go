package mdstream

// continueOrAddList places a new list marker of kind list. Scanning the
// stack above the current blockquote, the deepest ListItem whose content
// column the marker reaches becomes the parent of a new nested list. When the
// marker is indented less than some open item, it continues the nearest
// enclosing list of the same kind as a sibling item. Otherwise a new list is
// opened at the blockquote boundary.
//
//	line          list it joins
//	1. foo        new ordered list
//	   - bar      new list nested in "foo"
//	      - baz   new list nested in "bar"
//	   12. qux    not deep enough for "bar" and no ordered list there,
//	              so a new list in "foo"
//
// It reports whether a list node was opened.
func (p *Parser[T]) continueOrAddList(list Token) bool {
	listIndex, itemIndex := -1, -1
	for i := p.blockquoteIndex + 1; i < len(p.tokens); i++ {
		if p.tokens[i] != ListItem {
			continue
		}
		if p.tokens[i-1] == list {
			listIndex = i - 1
		}
		if p.indentLength < p.spaces[i] {
			itemIndex = -1
			break
		}
		itemIndex = i
	}
	switch {
	case itemIndex == -1 && listIndex == -1:
		p.closeUntil(p.blockquoteIndex)
		p.addToken(list)
		return true
	case itemIndex == -1:
		p.closeUntil(listIndex)
		return false
	default:
		p.closeUntil(itemIndex)
		p.addToken(list)
		return true
	}
}

// addListItem opens a ListItem whose content starts prefix columns after
// the current indentation, then looks for a task checkbox.
func (p *Parser[T]) addListItem(prefix int) {
	p.addToken(ListItem)
	p.spaces[len(p.spaces)-1] = p.indentLength + prefix
	p.clearRootPending()
	p.token = MaybeTask
}
