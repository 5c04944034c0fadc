package app

// Messages returned with FORBIDDEN, one per guarded action.
const (
	msgForbiddenUpdateUser     = "You can only update your own profile"
	msgForbiddenDeleteUser     = "You can only delete your own account"
	msgForbiddenViewForm       = "You can only view your own forms"
	msgForbiddenUpdateForm     = "You can only update your own forms"
	msgForbiddenDeleteForm     = "You can only delete your own forms"
	msgForbiddenViewQuestions  = "You can only view questions in your own forms"
	msgForbiddenAddQuestion    = "You can only add questions to your own forms"
	msgForbiddenUpdateQuestion = "You can only update questions in your own forms"
	msgForbiddenDeleteQuestion = "You can only delete questions from your own forms"
	msgForbiddenReorder        = "You can only reorder questions in your own forms"
	msgForbiddenViewResponses  = "You can only view responses to your own forms"
	msgForbiddenUpdateResponse = "You can only update responses in your own forms"
	msgForbiddenDeleteResponse = "You can only delete responses from your own forms"
)

// Messages returned with VALIDATION_ERROR, one per input kind.
const (
	msgInvalidInput    = "Invalid input data"
	msgInvalidForm     = "Invalid form data"
	msgInvalidQuestion = "Invalid question data"
	msgInvalidOrder    = "Invalid question order"
	msgInvalidResponse = "Invalid response data"
	msgInvalidSort     = "Invalid sort options"
)
