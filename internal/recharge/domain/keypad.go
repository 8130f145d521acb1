package recharge

// KeypadMaxDigits caps the entry-pad buffer; 50000 needs five digits.
const KeypadMaxDigits = 5

// Keypad is the numeric entry-pad buffer. Its text is committed through Selector.CommitKeypad.
type Keypad struct {
	digits []byte
}

// Press appends a digit. Non-digits and presses beyond KeypadMaxDigits are ignored.
func (k *Keypad) Press(digit rune) bool {
	if digit < '0' || digit > '9' {
		return false
	}
	if len(k.digits) >= KeypadMaxDigits {
		return false
	}
	if len(k.digits) == 0 && digit == '0' {
		return false
	}
	k.digits = append(k.digits, byte(digit))
	return true
}

// Backspace removes the last digit.
func (k *Keypad) Backspace() {
	if len(k.digits) > 0 {
		k.digits = k.digits[:len(k.digits)-1]
	}
}

// Reset empties the buffer.
func (k *Keypad) Reset() { k.digits = k.digits[:0] }

// Text returns the typed digits.
func (k *Keypad) Text() string { return string(k.digits) }
